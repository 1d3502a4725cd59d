package augment

import (
	"encoding/json"
	"testing"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"python block", "```python\nprint(1)\n```", "print(1)"},
		{"bare block", "```\nx := 1\n```", "x := 1"},
		{"with chatter whitespace", "\n\n```js\nlet a = 1;\n```\n\n", "let a = 1;"},
		{"c++ tag", "```c++\nint main() {}\n```", "int main() {}"},
		{"no fences", "  plain  ", "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripCodeFences(tt.in)
			if got != tt.want {
				t.Fatalf("StripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if again := StripCodeFences(got); again != got {
				t.Fatalf("second pass changed %q to %q", got, again)
			}
		})
	}
}

func TestLanguageName(t *testing.T) {
	tests := map[string]string{
		"fr":        "French",
		"pt-BR":     "Brazilian Portuguese",
		"Spanish":   "Spanish",
		" German ":  "German",
		"Old Norse": "Old Norse",
		"":          "",
	}
	for in, want := range tests {
		if got := LanguageName(in); got != want {
			t.Fatalf("LanguageName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResultJSON(t *testing.T) {
	data, err := json.Marshal(degraded("Translation failed.", CauseRequestFailed))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"text":"Translation failed.","status":"degraded","cause":"request_failed"}`
	if string(data) != want {
		t.Fatalf("expected %s, got %s", want, data)
	}

	data, err = json.Marshal(succeeded("hi"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"text":"hi","status":"succeeded"}` {
		t.Fatalf("unexpected JSON %s", data)
	}
}
