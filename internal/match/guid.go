package match

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/findid/internal/domain"
	"github.com/John-Robertt/findid/internal/xmldoc"
)

// GUID 按元素自身的 ID 属性匹配。
type GUID struct{}

func (GUID) Mode() domain.Mode { return domain.ModeGUID }

func (GUID) Scan(query string, doc *xmldoc.Document) Result {
	var res Result
	doc.Elements().Each(func(_ int, el *goquery.Selection) {
		id, ok := xmldoc.Attr(el, "ID")
		if !ok || !contains(id, query) {
			return
		}
		res.Matches = append(res.Matches, domain.MatchRecord{
			Tag:     xmldoc.Tag(el),
			Name:    xmldoc.AttrOr(el, "Name", domain.Unknown),
			ID:      id,
			ShortID: xmldoc.AttrOr(el, "ShortID", domain.Unknown),
		})
	})
	return res
}
