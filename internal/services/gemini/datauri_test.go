package gemini

import (
	"bytes"
	"testing"
)

func TestDataURIRoundTrip(t *testing.T) {
	payload := []byte{0x89, 0x50, 0x4e, 0x47}
	uri := encodeDataURI("image/png", payload)
	mime, data, err := parseDataURI(uri)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if mime != "image/png" {
		t.Fatalf("unexpected mime %q", mime)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("payload did not round trip")
	}
}

func TestParseDataURIRejectsPlainStrings(t *testing.T) {
	if _, _, err := parseDataURI("https://example.com/image.png"); err == nil {
		t.Fatal("expected error for non data uri")
	}
	if _, _, err := parseDataURI("data:image/png;base64"); err == nil {
		t.Fatal("expected error for missing payload")
	}
	if _, _, err := parseDataURI("data:image/png,rawbytes"); err == nil {
		t.Fatal("expected error for non base64 payload")
	}
}
