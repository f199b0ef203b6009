package dispatch

import (
	"reflect"
	"testing"
)

func TestRemoveFlagDropsValueSpan(t *testing.T) {
	tokens := []string{"link", "-b", "2:5", "-m", "movies"}
	got := removeFlag(tokens, "-b")
	want := []string{"link", "-m", "movies"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("removeFlag = %v, want %v", got, want)
	}
}

func TestSetMultiReplacesExisting(t *testing.T) {
	tokens := []string{"link", "-i", "5", "-m", "movies"}
	got := setMulti(tokens, 4)
	want := []string{"link", "-m", "movies", "-i", "4"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("setMulti = %v, want %v", got, want)
	}
}

func TestReplaceLink(t *testing.T) {
	got := replaceLink([]string{"old-link", "-i", "2"}, "new-link")
	want := []string{"new-link", "-i", "2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("replaceLink = %v, want %v", got, want)
	}

	got = replaceLink([]string{"-i", "2"}, "new-link")
	want = []string{"new-link", "-i", "2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("replaceLink with no positional = %v, want %v", got, want)
	}
}
