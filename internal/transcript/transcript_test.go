package transcript

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRender(t *testing.T) {
	tr := Transcript{
		{Role: RoleOther, Text: "Hello! Are you available?"},
		{Role: RoleSelf, Text: "Yes, I am."},
	}
	want := "other: Hello! Are you available?\nself: Yes, I am."
	if got := tr.Render(); got != want {
		t.Errorf("Render:\n got %q\nwant %q", got, want)
	}
}

func TestTail(t *testing.T) {
	tr := FromLines("other: a", "self: b", "other: c")
	if diff := cmp.Diff(FromLines("self: b", "other: c"), tr.Tail(2)); diff != "" {
		t.Errorf("Tail(2) mismatch (-want +got):\n%s", diff)
	}
	if len(tr.Tail(0)) != 3 || len(tr.Tail(10)) != 3 {
		t.Error("Tail should return everything when n <= 0 or n >= len")
	}
}

func TestIsEmpty(t *testing.T) {
	if !(Transcript{}).IsEmpty() {
		t.Error("nil transcript should be empty")
	}
	if !FromLines("other:   ").IsEmpty() {
		t.Error("blank text should be empty")
	}
	if FromLines("other: hi").IsEmpty() {
		t.Error("non-blank text should not be empty")
	}
}

func TestFromLines(t *testing.T) {
	got := FromLines("self: hi there", "other: hello", "no prefix")
	want := Transcript{
		{Role: RoleSelf, Text: "hi there"},
		{Role: RoleOther, Text: "hello"},
		{Role: RoleOther, Text: "no prefix"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FromLines mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRole(t *testing.T) {
	tests := map[string]Role{"user": RoleSelf, "SELF": RoleSelf, "client": RoleOther, "": RoleOther}
	for in, want := range tests {
		if got := ParseRole(in); got != want {
			t.Errorf("ParseRole(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestLastChars(t *testing.T) {
	if got := LastChars("abcdef", 3); got != "def" {
		t.Errorf("got %q", got)
	}
	if got := LastChars("abc", 10); got != "abc" {
		t.Errorf("got %q", got)
	}
}
