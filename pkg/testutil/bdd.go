package testutil

import "testing"

// Given, When, and Then wrap subtests with a spoken-style prefix so a failure
// reads as a sentence: "TestBusTap/Given_a_bus_with_a_registered_tap/...".
// They are plain t.Run under the hood; nesting them is what builds the story.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("When "+desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Then "+desc, fn)
}
