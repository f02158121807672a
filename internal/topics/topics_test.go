package topics

import (
	"strings"
	"testing"
)

func TestForRoomScopesEveryChannel(t *testing.T) {
	t.Parallel()

	set := ForRoom("lobby42")
	for _, ch := range set.All() {
		if !strings.HasPrefix(ch, "room_lobby42/") {
			t.Fatalf("channel %q is not scoped to the room", ch)
		}
	}
}

func TestForRoomChannelsAreDistinctWithinRoom(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})
	for _, ch := range ForRoom("abc").All() {
		if _, dup := seen[ch]; dup {
			t.Fatalf("duplicate channel %q within one room", ch)
		}
		seen[ch] = struct{}{}
	}
}

func TestForRoomDifferentRoomsNeverOverlap(t *testing.T) {
	t.Parallel()

	a := ForRoom("abc")
	b := ForRoom("abd")

	inA := make(map[string]struct{})
	for _, ch := range a.All() {
		inA[ch] = struct{}{}
	}
	for _, ch := range b.All() {
		if _, shared := inA[ch]; shared {
			t.Fatalf("rooms abc and abd share channel %q", ch)
		}
	}
}

func TestForRoomIsDeterministic(t *testing.T) {
	t.Parallel()

	if ForRoom("same") != ForRoom("same") {
		t.Fatal("two generations for the same room differ")
	}
}
