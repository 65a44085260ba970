package output

import (
	"encoding/json"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatResult renders the request, response or error and the chat message as JSON.
func (f *JSONFormatter) FormatResult(result *Result) (string, error) {
	if result == nil {
		return "", nil
	}
	return f.marshal(newResultDoc(result))
}

// FormatKinds renders the kinds listing as a JSON array.
func (f *JSONFormatter) FormatKinds(kinds []KindInfo) (string, error) {
	if kinds == nil {
		kinds = []KindInfo{}
	}
	return f.marshal(kinds)
}

func (f *JSONFormatter) marshal(v any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
