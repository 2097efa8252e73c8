package match

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/findid/internal/domain"
	"github.com/John-Robertt/findid/internal/xmldoc"
)

const mediaIDTag = "MediaID"

// MediaID 按 <MediaID ID="..."/> 节点匹配，结果归属到它的祖父元素。
//
// wwu 中的典型结构：
//
//	<AudioFileSource Name=".." ID="{..}">
//		<Language>SFX</Language>
//		<AudioFile>x.wav</AudioFile>
//		<MediaIDList>
//			<MediaID ID="123"/>
//		</MediaIDList>
//	</AudioFileSource>
//
// 祖父元素不存在时跳过该节点并返回 Anomaly，不影响同文件其它结果。
type MediaID struct{}

func (MediaID) Mode() domain.Mode { return domain.ModeMediaID }

func (MediaID) Scan(query string, doc *xmldoc.Document) Result {
	var res Result
	doc.Elements().Each(func(_ int, el *goquery.Selection) {
		if xmldoc.Tag(el) != mediaIDTag {
			return
		}
		mid := xmldoc.AttrOr(el, "ID", domain.Unknown)
		if !contains(mid, query) {
			return
		}

		parent := xmldoc.ParentElement(el)
		if parent.Length() == 0 {
			res.Anomalies = append(res.Anomalies, Anomaly{Tag: mediaIDTag, Value: mid, Reason: "MediaID 没有父元素"})
			return
		}
		owner := xmldoc.ParentElement(parent)
		if owner.Length() == 0 {
			res.Anomalies = append(res.Anomalies, Anomaly{Tag: mediaIDTag, Value: mid, Reason: "MediaID 缺少祖父元素（" + xmldoc.Tag(parent) + " 已是根元素）"})
			return
		}

		res.Matches = append(res.Matches, domain.MatchRecord{
			Tag:       xmldoc.Tag(owner),
			Name:      xmldoc.AttrOr(owner, "Name", domain.Unknown),
			ID:        xmldoc.AttrOr(owner, "ID", domain.Unknown),
			ShortID:   domain.Unknown,
			MediaID:   mid,
			Language:  childText(owner, "Language"),
			AudioFile: childText(owner, "AudioFile"),
		})
	})
	return res
}

func childText(owner *goquery.Selection, fragment string) string {
	if s, ok := xmldoc.Text(xmldoc.FirstChildWhereTagContains(owner, fragment)); ok {
		return s
	}
	return domain.Unknown
}
