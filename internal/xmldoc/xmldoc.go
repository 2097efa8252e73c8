// Package xmldoc 把 work unit 的 XML 文本解析成可导航的节点树。
//
// goquery 默认走 HTML 解析器，会把标签名/属性名转成小写；而 wwu 的标签
// （MediaID、ShortID…）大小写敏感。这里用 encoding/xml 逐 token 构造
// 保留大小写的 html.Node 树，再交给 goquery 做父子/兄弟导航。
package xmldoc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var (
	// ErrNoRoot 表示文档里没有任何元素。
	ErrNoRoot = errors.New("xml 文档没有根元素")
	// ErrMultipleRoots 表示文档顶层出现了第二个元素。
	ErrMultipleRoots = errors.New("xml 文档有多个根元素")
)

// Document 是一个已解析的 XML 文档（只读）。
type Document struct {
	doc *goquery.Document
}

// Parse 解析 XML 文本。
//
// 规则：
// - 标签名/属性名只取 local 部分（忽略命名空间前缀），xmlns 声明不作为属性保留
// - 文本、CDATA、纯空白文本都保留；相邻文本合并为一个节点
// - 注释、处理指令、DOCTYPE 丢弃
// - 标签不配对/截断/非法字符、多个根元素、根元素之外的文本：返回错误（不做容错修复）
func Parse(content []byte) (*Document, error) {
	content = bytes.TrimPrefix(content, utf8BOM)

	dec := xml.NewDecoder(bytes.NewReader(content))
	dec.CharsetReader = charset.NewReaderLabel

	root := &html.Node{Type: html.DocumentNode}
	cur := root
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xml 解析失败：%w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if cur == root && root.FirstChild != nil {
				return nil, fmt.Errorf("xml 解析失败：%w（<%s>）", ErrMultipleRoots, t.Name.Local)
			}
			n := &html.Node{Type: html.ElementNode, Data: t.Name.Local}
			for _, a := range t.Attr {
				if isNamespaceDecl(a.Name) {
					continue
				}
				n.Attr = append(n.Attr, html.Attribute{Key: a.Name.Local, Val: a.Value})
			}
			cur.AppendChild(n)
			cur = n
		case xml.EndElement:
			// Token() 已保证起止标签配对，这里 Parent 不会越过文档节点。
			cur = cur.Parent
		case xml.CharData:
			if cur == root {
				// 根元素之外只允许空白。
				if len(bytes.TrimSpace(t)) > 0 {
					return nil, fmt.Errorf("xml 解析失败：根元素之外出现文本")
				}
				continue
			}
			if last := cur.LastChild; last != nil && last.Type == html.TextNode {
				last.Data += string(t)
				continue
			}
			cur.AppendChild(&html.Node{Type: html.TextNode, Data: string(t)})
		}
	}

	if root.FirstChild == nil {
		return nil, ErrNoRoot
	}
	return &Document{doc: goquery.NewDocumentFromNode(root)}, nil
}

func isNamespaceDecl(n xml.Name) bool {
	return n.Space == "xmlns" || (n.Space == "" && n.Local == "xmlns")
}

// Elements 按文档顺序返回全部元素。
func (d *Document) Elements() *goquery.Selection {
	return d.doc.Find("*")
}

// Tag 返回元素名（保留大小写）。
func Tag(el *goquery.Selection) string {
	return goquery.NodeName(el)
}

// Attr 读取属性（名字大小写敏感）。
func Attr(el *goquery.Selection, name string) (string, bool) {
	return el.Attr(name)
}

// AttrOr 读取属性；不存在时返回 def。
func AttrOr(el *goquery.Selection, name, def string) string {
	return el.AttrOr(name, def)
}

// ParentElement 返回父元素；el 是根元素时返回空 selection。
func ParentElement(el *goquery.Selection) *goquery.Selection {
	return el.Parent()
}

// FirstChildWhereTagContains 返回第一个“标签名包含 fragment”的直接子元素（可能为空 selection）。
func FirstChildWhereTagContains(el *goquery.Selection, fragment string) *goquery.Selection {
	return el.Children().FilterFunction(func(_ int, c *goquery.Selection) bool {
		return strings.Contains(Tag(c), fragment)
	}).First()
}

// Text 返回元素第一个子节点的文本（仅当它是文本节点时）。
//
// 与 goquery 的 Text() 不同：不会把后代文本拼接起来。
func Text(el *goquery.Selection) (string, bool) {
	if el.Length() == 0 {
		return "", false
	}
	n := el.Get(0)
	if n.FirstChild == nil || n.FirstChild.Type != html.TextNode {
		return "", false
	}
	return n.FirstChild.Data, true
}
