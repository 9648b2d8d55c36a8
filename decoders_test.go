package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock decoder for testing chain order
type mockDecoder struct {
	canDecode bool
	text      string
}

func (m *mockDecoder) CanDecode(payload any) bool {
	return m.canDecode
}

func (m *mockDecoder) Decode(payload any) (*Completion, error) {
	return &Completion{Text: m.text, Recognized: true}, nil
}

func TestDecodeResponseShapes(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		text       string
		recognized bool
	}{
		{"hf list", `[{"generated_text": "hello list"}]`, "hello list", true},
		{"hf object", `{"generated_text": "hello object"}`, "hello object", true},
		{"chat completion", `{"choices": [{"message": {"role": "assistant", "content": "hello chat"}}]}`, "hello chat", true},
		{"unknown object", `{"output": "x"}`, `{"output":"x"}`, false},
		{"empty list", `[]`, `[]`, false},
		{"list of strings", `["a","b"]`, `["a","b"]`, false},
		{"chat without choices", `{"choices": []}`, `{"choices":[]}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completion, err := DecodeResponse([]byte(tt.body), DefaultDecoders())
			require.NoError(t, err)
			assert.Equal(t, tt.text, completion.Text)
			assert.Equal(t, tt.recognized, completion.Recognized)
		})
	}
}

func TestDecodeResponseErrors(t *testing.T) {
	_, err := DecodeResponse([]byte("<html>502 Bad Gateway</html>"), DefaultDecoders())
	var malformed *MalformedResponseError
	require.True(t, errors.As(err, &malformed), "got %T", err)
	assert.Equal(t, OutcomeMalformed, ClassifyError(err))

	_, err = DecodeResponse([]byte(`{"error": "Model gpt2 is currently loading"}`), DefaultDecoders())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "currently loading")
	assert.Equal(t, OutcomeProviderError, ClassifyError(err))
}

func TestDecodeResponseChainOrder(t *testing.T) {
	decoders := []ResponseDecoder{
		&mockDecoder{canDecode: false, text: "first"},
		&mockDecoder{canDecode: true, text: "second"},
		&mockDecoder{canDecode: true, text: "third"},
	}

	completion, err := DecodeResponse([]byte(`{}`), decoders)
	require.NoError(t, err)
	assert.Equal(t, "second", completion.Text, "first matching decoder must win")
}

func TestDecodeResponseNoMatchingDecoder(t *testing.T) {
	decoders := []ResponseDecoder{&mockDecoder{canDecode: false}}

	completion, err := DecodeResponse([]byte(`{}`), decoders)
	assert.Nil(t, completion)
	assert.Equal(t, OutcomeMalformed, ClassifyError(err))
}
