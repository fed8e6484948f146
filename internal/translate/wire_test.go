package translate

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const batchPrefix = ")]}'\n\n123\n"

func TestParseTranslation(t *testing.T) {
	tests := []struct {
		name              string
		body              string
		wantFirst         []any
		wantCorrectedTerm string
		wantErr           error
		wantParseStep     string
	}{
		{
			name:      "plain translation line",
			body:      `[["wrb.fr","MkEWBc","[[\"hello\",\"привет\"]]",null,null,null,"generic"]]`,
			wantFirst: []any{"hello", "привет"},
		},
		{
			name:      "marker line after other lines",
			body:      batchPrefix + `[["wrb.fr","MkEWBc","[[\"hello\",\"привет\"]]",null,null,null,"generic"]]` + "\n56\n" + `[["di",42],["af.httprm",41,"123",1]]`,
			wantFirst: []any{"hello", "привет"},
		},
		{
			name:              "correction candidate with emphasis markup",
			body:              `[["wrb.fr","MkEWBc","[[\"bananna\",\"банан\"]]",[[\"\\u003cb\\u003e\\u003ci\\u003ebanana\\u003c/i\\u003e\\u003c/b\\u003e\",\"banana\"]],null,"generic"]]`,
			wantFirst:         []any{"bananna", "банан"},
			wantCorrectedTerm: "banana",
		},
		{
			name:      "newline escapes inside the payload",
			body:      `[["wrb.fr","MkEWBc","[[\"hel\nlo\",\"привет\"]]",null,null,null,"generic"]]`,
			wantFirst: []any{"hello", "привет"},
		},
		{
			name:      "truncated line is closed",
			body:      `[["wrb.fr","MkEWBc","[[\"hello\",\"привет\"]]",null`,
			wantFirst: []any{"hello", "привет"},
		},
		{
			name:    "no marker line",
			body:    batchPrefix + `[["wrb.fr","jQ1olc","[\"SUQz\"]",null,null,null,"generic"]]`,
			wantErr: ErrMarkerNotFound,
		},
		{
			name:    "empty body",
			body:    "",
			wantErr: ErrMarkerNotFound,
		},
		{
			name:          "malformed payload",
			body:          `[["wrb.fr","MkEWBc","[[\"hello\",]]",null]]`,
			wantParseStep: "decode",
		},
		{
			name:          "marker without envelope",
			body:          `{"rpc":"MkEWBc"}`,
			wantParseStep: "strip-envelope",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTranslation(tt.body)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			if tt.wantParseStep != "" {
				var parseErr *ParseError
				require.ErrorAs(t, err, &parseErr)
				assert.Equal(t, TranslationMarker, parseErr.Marker)
				assert.Equal(t, tt.wantParseStep, parseErr.Step)
				assert.False(t, errors.Is(err, ErrMarkerNotFound))
				return
			}

			require.NoError(t, err)
			var raw []any
			require.NoError(t, json.Unmarshal(got.Raw, &raw))
			require.NotEmpty(t, raw)
			assert.Equal(t, tt.wantFirst, raw[0])
			assert.Equal(t, tt.wantCorrectedTerm, got.CorrectedTerm)
		})
	}
}

func TestParsePronunciation(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		want          string
		wantErr       error
		wantParseStep string
	}{
		{
			name: "audio line",
			body: batchPrefix + `[["wrb.fr","jQ1olc","[\"SUQzBAAAAA==\"]",null,null,null,"generic"]]`,
			want: "data:audio/mpeg;base64,SUQzBAAAAA==",
		},
		{
			name:    "translation only",
			body:    `[["wrb.fr","MkEWBc","[[\"hello\",\"привет\"]]",null,null,null,"generic"]]`,
			wantErr: ErrMarkerNotFound,
		},
		{
			name:          "empty audio",
			body:          `[["wrb.fr","jQ1olc","[]",null,null,null,"generic"]]`,
			wantParseStep: "extract",
		},
		{
			name:          "broken structure",
			body:          `[["wrb.fr","jQ1olc","[\"SUQz\",}]",null]]`,
			wantParseStep: "decode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePronunciation(tt.body)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantParseStep != "":
				var parseErr *ParseError
				require.ErrorAs(t, err, &parseErr)
				assert.Equal(t, PronunciationMarker, parseErr.Marker)
				assert.Equal(t, tt.wantParseStep, parseErr.Step)
			default:
				require.NoError(t, err)
				assert.True(t, strings.HasPrefix(got, AudioDataURIPrefix))
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseLegacy(t *testing.T) {
	tests := []struct {
		name              string
		body              string
		wantCorrectedTerm string
		wantErr           bool
	}{
		{
			name: "translation without correction",
			body: `[[["привет","hello",null,null,1]],null,"en",null,null,null,1,[]]`,
		},
		{
			name:              "translation with correction",
			body:              `[[["банан","bananna",null,null,1]],null,"en",null,null,null,0.5,["<b><i>banana</i></b>","banana",null,null,null,1]]`,
			wantCorrectedTerm: "banana",
		},
		{
			name:    "not json",
			body:    `<html>captcha</html>`,
			wantErr: true,
		},
		{
			name:    "json object",
			body:    `{"sentences":[]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLegacy([]byte(tt.body))
			if tt.wantErr {
				var parseErr *ParseError
				require.ErrorAs(t, err, &parseErr)
				assert.Equal(t, "decode", parseErr.Step)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.body, string(got.Raw))
			assert.Equal(t, tt.wantCorrectedTerm, got.CorrectedTerm)
		})
	}
}

func TestContainsMarker(t *testing.T) {
	body := batchPrefix + `[["wrb.fr","jQ1olc","[\"SUQz\"]",null]]`
	assert.True(t, ContainsMarker(body, PronunciationMarker))
	assert.False(t, ContainsMarker(body, TranslationMarker))
}

func TestCloseOpenArrays(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: `[[1,2]]`, want: `[[1,2]]`},
		{in: `[[1,[2`, want: `[[1,[2]]]`},
		{in: `[["a]","[b"`, want: `[["a]","[b"]]`},
		{in: `[["a\"[",1`, want: `[["a\"[",1]]`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, closeOpenArrays(tt.in))
		})
	}
}
