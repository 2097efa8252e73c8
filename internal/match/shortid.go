package match

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/findid/internal/domain"
	"github.com/John-Robertt/findid/internal/xmldoc"
)

// ShortID 按元素的 ShortID 属性匹配。
type ShortID struct{}

func (ShortID) Mode() domain.Mode { return domain.ModeShortID }

func (ShortID) Scan(query string, doc *xmldoc.Document) Result {
	var res Result
	doc.Elements().Each(func(_ int, el *goquery.Selection) {
		sid, ok := xmldoc.Attr(el, "ShortID")
		if !ok || !contains(sid, query) {
			return
		}
		res.Matches = append(res.Matches, domain.MatchRecord{
			Tag:     xmldoc.Tag(el),
			Name:    xmldoc.AttrOr(el, "Name", domain.Unknown),
			ID:      xmldoc.AttrOr(el, "ID", domain.Unknown),
			ShortID: sid,
		})
	})
	return res
}
