package main

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ResponseDecoder extracts generated text from a decoded JSON payload
type ResponseDecoder interface {
	CanDecode(payload any) bool
	Decode(payload any) (*Completion, error)
}

// DefaultDecoders lists the known response shapes, most specific first.
// The stringify decoder always matches and must stay last.
func DefaultDecoders() []ResponseDecoder {
	return []ResponseDecoder{
		&GeneratedTextListDecoder{},
		&GeneratedTextDecoder{},
		&ChatCompletionDecoder{},
		&APIErrorDecoder{},
		&StringifyDecoder{},
	}
}

// DecodeResponse parses body as JSON and hands it to the first decoder that accepts it
func DecodeResponse(body []byte, decoders []ResponseDecoder) (*Completion, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &MalformedResponseError{Err: fmt.Errorf("decoding JSON: %w", err)}
	}

	for _, decoder := range decoders {
		if decoder.CanDecode(payload) {
			return decoder.Decode(payload)
		}
	}

	return nil, &MalformedResponseError{Err: errors.New("no decoder accepted the response")}
}

// GeneratedTextListDecoder handles [{"generated_text": "..."}]
type GeneratedTextListDecoder struct{}

func (d *GeneratedTextListDecoder) CanDecode(payload any) bool {
	list, ok := payload.([]any)
	if !ok || len(list) == 0 {
		return false
	}
	_, ok = generatedText(list[0])
	return ok
}

func (d *GeneratedTextListDecoder) Decode(payload any) (*Completion, error) {
	text, _ := generatedText(payload.([]any)[0])
	return &Completion{Text: text, Recognized: true}, nil
}

// GeneratedTextDecoder handles {"generated_text": "..."}
type GeneratedTextDecoder struct{}

func (d *GeneratedTextDecoder) CanDecode(payload any) bool {
	_, ok := generatedText(payload)
	return ok
}

func (d *GeneratedTextDecoder) Decode(payload any) (*Completion, error) {
	text, _ := generatedText(payload)
	return &Completion{Text: text, Recognized: true}, nil
}

// ChatCompletionDecoder handles {"choices": [{"message": {"content": "..."}}]}
type ChatCompletionDecoder struct{}

func (d *ChatCompletionDecoder) CanDecode(payload any) bool {
	_, ok := chatContent(payload)
	return ok
}

func (d *ChatCompletionDecoder) Decode(payload any) (*Completion, error) {
	text, _ := chatContent(payload)
	return &Completion{Text: text, Recognized: true}, nil
}

// APIErrorDecoder handles {"error": ...} bodies some endpoints return with a 2xx status
type APIErrorDecoder struct{}

func (d *APIErrorDecoder) CanDecode(payload any) bool {
	obj, ok := payload.(map[string]any)
	if !ok {
		return false
	}
	_, ok = obj["error"]
	return ok
}

func (d *APIErrorDecoder) Decode(payload any) (*Completion, error) {
	return nil, fmt.Errorf("provider returned error: %v", payload.(map[string]any)["error"])
}

// StringifyDecoder accepts any payload and returns it as compact JSON text
type StringifyDecoder struct{}

func (d *StringifyDecoder) CanDecode(payload any) bool {
	return true
}

func (d *StringifyDecoder) Decode(payload any) (*Completion, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, &MalformedResponseError{Err: fmt.Errorf("re-encoding payload: %w", err)}
	}
	return &Completion{Text: string(raw), Recognized: false}, nil
}

func generatedText(v any) (string, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	text, ok := obj["generated_text"].(string)
	return text, ok
}

func chatContent(v any) (string, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	choices, ok := obj["choices"].([]any)
	if !ok || len(choices) == 0 {
		return "", false
	}
	choice, ok := choices[0].(map[string]any)
	if !ok {
		return "", false
	}
	message, ok := choice["message"].(map[string]any)
	if !ok {
		return "", false
	}
	content, ok := message["content"].(string)
	return content, ok
}
