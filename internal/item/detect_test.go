package item

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Type
	}{
		{"link", "https://example.com/path?q=1", TypeLink},
		{"email", "someone@example.org", TypeEmail},
		{"phone", "+1 (555) 123-4567", TypePhone},
		{"us phone", "(555) 123-4567", TypePhone},
		{"dashed phone", "555-123-4567", TypePhone},
		{"international bare", "+442071838750", TypePhone},
		{"iso date", "2024-01-15", TypeText},
		{"dotted date", "15.01.2024", TypeText},
		{"integer", "1234567", TypeText},
		{"decimal", "3.14159265", TypeText},
		{"hex color", "#1e90ff", TypeColor},
		{"rgb color", "rgb(30, 144, 255)", TypeColor},
		{"go code", "func main() {\n\tfmt.Println(\"hi\")\n}", TypeCode},
		{"js code", "const x = () => {\n  return 1;\n};", TypeCode},
		{"prose", "Remember to return the library book tomorrow.", TypeText},
		{"empty", "   ", TypeText},
		{"not a link", "example.com is down", TypeText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.in); got != tt.want {
				t.Fatalf("Detect(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
