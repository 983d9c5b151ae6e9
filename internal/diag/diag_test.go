package diag

import (
	"reflect"
	"sync"
	"testing"
)

// TestLog_AddAndMessages verifies ordering, formatting and copy semantics.
func TestLog_AddAndMessages(t *testing.T) {
	t.Parallel()

	l := New()
	l.Infof(CodeSampling, "switched to %s", "random")
	l.Errorf(2, "step %d failed", 2)
	l.Warnf(1, "plain")

	want := []Message{
		{Code: -1, Type: Info, Message: "switched to random"},
		{Code: 2, Type: Error, Message: "step 2 failed"},
		{Code: 1, Type: Warning, Message: "plain"},
	}
	got := l.Messages()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Messages() = %#v, want %#v", got, want)
	}
	got[0].Message = "mutated"
	if l.Messages()[0].Message != "switched to random" {
		t.Fatalf("Messages() must return a copy")
	}
	if l.Count(Error) != 1 || l.Count(Warning) != 1 || l.Count(Info) != 1 {
		t.Fatalf("unexpected counts")
	}
}

// TestLog_NilIsSafe ensures a nil log discards messages.
func TestLog_NilIsSafe(t *testing.T) {
	t.Parallel()

	var l *Log
	l.Errorf(1, "ignored")
	if n := len(l.Messages()); n != 0 {
		t.Fatalf("nil log returned %d messages", n)
	}
}

// TestLog_Concurrent adds from many goroutines; run with -race.
func TestLog_Concurrent(t *testing.T) {
	t.Parallel()

	l := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Warnf(i, "w%d", i)
		}(i)
	}
	wg.Wait()
	if got := l.Count(Warning); got != 50 {
		t.Fatalf("Count(Warning) = %d, want 50", got)
	}
}
