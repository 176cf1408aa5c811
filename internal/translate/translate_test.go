package translate

import "testing"

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
		ok   bool
	}{
		{
			"single segment",
			`[[["翻译后的标题","Original Title",null,null,10]],null,"en"]`,
			"翻译后的标题",
			true,
		},
		{
			"multiple segments",
			`[[["第一句。","First.",null],["第二句。","Second.",null]],null,"en"]`,
			"第一句。第二句。",
			true,
		},
		{"empty payload", `[]`, "", false},
		{"not json", `<html>blocked</html>`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseResponse([]byte(tt.body))
			if tt.ok != (err == nil) {
				t.Fatalf("err = %v, ok = %v", err, tt.ok)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
