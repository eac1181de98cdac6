package mail

import (
	"strings"
	"testing"
)

func TestRenderVerification(t *testing.T) {
	html, err := renderVerification(templateData{
		AppName:   "Chat App",
		Title:     "Hello, Word!",
		ImgURL:    "https://chat.example.com/robot.png",
		ActionURL: "https://chat.example.com/register/verify",
		Code:      "aB3kP9mX",
	})
	if err != nil {
		t.Fatalf("renderVerification() error = %v", err)
	}

	for _, want := range []string{
		"aB3kP9mX",
		"https://chat.example.com/register/verify",
		"Verify your email",
		"Chat App",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("renderVerification() missing %q", want)
		}
	}
}

func TestRenderReset(t *testing.T) {
	html, err := renderReset(templateData{
		AppName:   "Chat App",
		Title:     "Hello, Word!",
		ImgURL:    "https://chat.example.com/robot.png",
		ActionURL: "https://chat.example.com/new-pw",
		Code:      "x7YtR2wQ",
	})
	if err != nil {
		t.Fatalf("renderReset() error = %v", err)
	}

	for _, want := range []string{
		"x7YtR2wQ",
		"https://chat.example.com/new-pw",
		"Set a new password",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("renderReset() missing %q", want)
		}
	}
}

func TestRender_EscapesCode(t *testing.T) {
	// Codes come from our own alphabet, but the template must still escape
	// anything markup-like that ends up in the data.
	html, err := renderVerification(templateData{
		AppName:   "Chat App",
		Code:      "<script>alert(1)</script>",
		ActionURL: "https://chat.example.com/register/verify",
	})
	if err != nil {
		t.Fatalf("renderVerification() error = %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Error("render() did not escape HTML in the code field")
	}
}
