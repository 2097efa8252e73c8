package xmldoc

import (
	"errors"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `<?xml version="1.0" encoding="utf-8"?>
<WwiseDocument Type="WorkUnit" ID="{ROOT}" SchemaVersion="110">
	<AudioObjects>
		<Sound Name="Footstep" ID="{S1}" ShortID="42">
			<Language>SFX</Language>
			<AudioFile>footstep.wav</AudioFile>
			<MediaIDList>
				<MediaID ID="77"/>
			</MediaIDList>
		</Sound>
	</AudioObjects>
</WwiseDocument>`

func TestParse_PreservesCaseAndNavigation(t *testing.T) {
	doc, err := Parse([]byte(sample))
	require.NoError(t, err)

	var tags []string
	doc.Elements().Each(func(_ int, el *goquery.Selection) {
		tags = append(tags, Tag(el))
	})
	assert.Equal(t, []string{"WwiseDocument", "AudioObjects", "Sound", "Language", "AudioFile", "MediaIDList", "MediaID"}, tags)

	media := doc.Elements().FilterFunction(func(_ int, el *goquery.Selection) bool { return Tag(el) == "MediaID" })
	require.Equal(t, 1, media.Length())

	owner := ParentElement(ParentElement(media))
	assert.Equal(t, "Sound", Tag(owner))
	assert.Equal(t, "Footstep", AttrOr(owner, "Name", "?"))

	id, ok := Attr(owner, "ShortID")
	assert.True(t, ok)
	assert.Equal(t, "42", id)

	// 属性名大小写敏感。
	_, ok = Attr(owner, "shortid")
	assert.False(t, ok)

	lang, ok := Text(FirstChildWhereTagContains(owner, "Language"))
	assert.True(t, ok)
	assert.Equal(t, "SFX", lang)
	audio, ok := Text(FirstChildWhereTagContains(owner, "AudioFile"))
	assert.True(t, ok)
	assert.Equal(t, "footstep.wav", audio)
}

func TestParse_RootHasNoParentElement(t *testing.T) {
	doc, err := Parse([]byte(`<MediaID ID="1"/>`))
	require.NoError(t, err)

	root := doc.Elements().First()
	assert.Equal(t, 0, ParentElement(root).Length())
	assert.Equal(t, 0, ParentElement(ParentElement(root)).Length())
}

func TestParse_TextOnlyFirstChild(t *testing.T) {
	doc, err := Parse([]byte(`<A><B><C>x</C>tail</B><D>one<![CDATA[two]]></D></A>`))
	require.NoError(t, err)

	b := doc.Elements().Eq(1)
	_, ok := Text(b)
	assert.False(t, ok, "第一个子节点是元素时不应返回文本")

	d := doc.Elements().Eq(3)
	got, ok := Text(d)
	assert.True(t, ok)
	assert.Equal(t, "onetwo", got)

	_, ok = Text(FirstChildWhereTagContains(b, "Missing"))
	assert.False(t, ok)
}

func TestParse_NamespacesAndBOM(t *testing.T) {
	in := append([]byte{0xEF, 0xBB, 0xBF}, []byte(`<w:Doc xmlns:w="urn:x" xmlns="urn:y"><w:Sound w:Name="N" ID="1"/></w:Doc>`)...)
	doc, err := Parse(in)
	require.NoError(t, err)

	root := doc.Elements().First()
	assert.Equal(t, "Doc", Tag(root))
	assert.Empty(t, root.Nodes[0].Attr, "xmlns 声明不应作为属性保留")

	snd := doc.Elements().Eq(1)
	assert.Equal(t, "Sound", Tag(snd))
	assert.Equal(t, "N", AttrOr(snd, "Name", "?"))
}

func TestParse_Malformed(t *testing.T) {
	for _, in := range []string{
		`<A><B></A>`,
		`<A>`,
		`<A ID="1"`,
		`not xml at all`,
		``,
	} {
		_, err := Parse([]byte(in))
		assert.Error(t, err, "输入 %q 应解析失败", in)
	}

	_, err := Parse([]byte("  \n "))
	assert.True(t, errors.Is(err, ErrNoRoot))
}

func TestParse_SingleRootOnly(t *testing.T) {
	_, err := Parse([]byte(`<A/><B/>`))
	assert.True(t, errors.Is(err, ErrMultipleRoots), "err=%v", err)

	_, err = Parse([]byte(`<WwiseDocument><Sound ID="1"/></WwiseDocument><Sound ID="2"/>`))
	assert.True(t, errors.Is(err, ErrMultipleRoots), "err=%v", err)

	_, err = Parse([]byte(`<A/>trailing`))
	assert.Error(t, err)

	// 根元素前后的空白、声明与注释都合法。
	doc, err := Parse([]byte("<?xml version=\"1.0\"?>\n<!-- c -->\n<A ID=\"1\"/>\n\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Elements().Length())
}
