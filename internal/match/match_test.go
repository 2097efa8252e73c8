package match

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/findid/internal/domain"
	"github.com/John-Robertt/findid/internal/xmldoc"
)

const unit = `<?xml version="1.0" encoding="utf-8"?>
<WwiseDocument Type="WorkUnit" ID="{7A1B-ROOT}" SchemaVersion="110">
	<AudioObjects>
		<WorkUnit Name="Default Work Unit" ID="{7A1B-WU}" ShortID="100200">
			<ChildrenList>
				<Sound Name="Explosion" ID="{ABC123-EXPL}" ShortID="555001">
					<LanguageSpecificProperty>English</LanguageSpecificProperty>
					<AudioFileProperty>explosion.wem</AudioFileProperty>
					<MediaIDList>
						<MediaID ID="MED-001"/>
					</MediaIDList>
				</Sound>
				<Event Name="Trigger" ID="{DEF456}"/>
				<RandomSequenceContainer ID="{NO-NAME}"/>
			</ChildrenList>
		</WorkUnit>
	</AudioObjects>
</WwiseDocument>`

func mustParse(t *testing.T, s string) *xmldoc.Document {
	t.Helper()
	doc, err := xmldoc.Parse([]byte(s))
	require.NoError(t, err)
	return doc
}

func TestGUID_SubstringMatch(t *testing.T) {
	doc := mustParse(t, unit)

	res := GUID{}.Scan("abc123", doc)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, domain.MatchRecord{
		Tag:     "Sound",
		Name:    "Explosion",
		ID:      "{ABC123-EXPL}",
		ShortID: "555001",
	}, res.Matches[0])
	assert.Empty(t, res.Anomalies)
}

func TestGUID_MissingNameAndShortIDAreUnknown(t *testing.T) {
	doc := mustParse(t, unit)

	res := GUID{}.Scan("no-name", doc)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "RandomSequenceContainer", res.Matches[0].Tag)
	assert.Equal(t, domain.Unknown, res.Matches[0].Name)
	assert.Equal(t, domain.Unknown, res.Matches[0].ShortID)
	assert.Equal(t, "", res.Matches[0].MediaID)
}

func TestGUID_MatchesEveryElementContainingQuery(t *testing.T) {
	doc := mustParse(t, unit)

	res := GUID{}.Scan("7a1b", doc)
	require.Len(t, res.Matches, 2)
	assert.Equal(t, "WwiseDocument", res.Matches[0].Tag)
	assert.Equal(t, "WorkUnit", res.Matches[1].Tag)
}

func TestGUID_NoMatch(t *testing.T) {
	doc := mustParse(t, unit)
	assert.Empty(t, GUID{}.Scan("zzz", doc).Matches)
}

func TestShortID_Match(t *testing.T) {
	doc := mustParse(t, unit)

	res := ShortID{}.Scan("5550", doc)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, domain.MatchRecord{
		Tag:     "Sound",
		Name:    "Explosion",
		ID:      "{ABC123-EXPL}",
		ShortID: "555001",
	}, res.Matches[0])

	// ShortID 策略只看 ShortID 属性。
	assert.Empty(t, ShortID{}.Scan("def456", doc).Matches)
}

func TestMediaID_OwnerIsGrandparent(t *testing.T) {
	doc := mustParse(t, unit)

	res := MediaID{}.Scan("med-001", doc)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, domain.MatchRecord{
		Tag:       "Sound",
		Name:      "Explosion",
		ID:        "{ABC123-EXPL}",
		ShortID:   domain.Unknown,
		MediaID:   "MED-001",
		Language:  "English",
		AudioFile: "explosion.wem",
	}, res.Matches[0])
}

func TestMediaID_MissingLanguageAndAudioFile(t *testing.T) {
	doc := mustParse(t, `<Root><Sound Name="S"><List><MediaID ID="9"/></List></Sound></Root>`)

	res := MediaID{}.Scan("9", doc)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, domain.Unknown, res.Matches[0].ID)
	assert.Equal(t, domain.Unknown, res.Matches[0].Language)
	assert.Equal(t, domain.Unknown, res.Matches[0].AudioFile)
}

func TestMediaID_MissingAncestorIsSkipped(t *testing.T) {
	// 第一个 MediaID 只有一层父元素；第二个结构正常。
	doc := mustParse(t, `<List><MediaID ID="42"/><Wrap><MediaID ID="420"/></Wrap></List>`)

	res := MediaID{}.Scan("42", doc)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "List", res.Matches[0].Tag)
	assert.Equal(t, "420", res.Matches[0].MediaID)

	require.Len(t, res.Anomalies, 1)
	assert.Equal(t, "42", res.Anomalies[0].Value)
}

func TestMediaID_RootMediaID(t *testing.T) {
	doc := mustParse(t, `<MediaID ID="1"/>`)

	res := MediaID{}.Scan("1", doc)
	assert.Empty(t, res.Matches)
	assert.Len(t, res.Anomalies, 1)
}

func TestStrategies_CaseInsensitive(t *testing.T) {
	doc := mustParse(t, unit)

	// 调用方负责把 query 转小写；同一 query 的大小写变体经 ToLower 后结果一致。
	for _, s := range []Strategy{GUID{}, ShortID{}, MediaID{}} {
		upper := s.Scan(strings.ToLower("ABC123"), doc)
		low := s.Scan(strings.ToLower("abc123"), doc)
		assert.Equal(t, low, upper, string(s.Mode()))
	}
	assert.NotEmpty(t, MediaID{}.Scan(strings.ToLower("MED"), doc).Matches)
}

func TestStrategies_OnlyPopulateOwnFields(t *testing.T) {
	doc := mustParse(t, unit)

	for _, m := range (GUID{}).Scan("", doc).Matches {
		assert.Empty(t, m.MediaID)
		assert.Empty(t, m.Language)
		assert.Empty(t, m.AudioFile)
	}
	for _, m := range (ShortID{}).Scan("", doc).Matches {
		assert.Empty(t, m.MediaID)
		assert.Empty(t, m.Language)
		assert.Empty(t, m.AudioFile)
	}
	for _, m := range (MediaID{}).Scan("", doc).Matches {
		assert.Equal(t, domain.Unknown, m.ShortID)
		assert.NotEmpty(t, m.MediaID)
	}
}
