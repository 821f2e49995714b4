package console

import (
	"errors"
	"reflect"
	"testing"
)

func TestLineBufferEvictsOldest(t *testing.T) {
	t.Parallel()

	b := NewLineBuffer(3)
	for _, l := range []string{"a", "b", "c", "d"} {
		b.Append(l)
	}

	got := b.Lines()
	want := []string{"b", "c", "d"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Lines() = %v, want %v", got, want)
	}
}

func TestLineBufferDefaultCapacity(t *testing.T) {
	t.Parallel()

	if got := NewLineBuffer(0).Cap(); got != 500 {
		t.Fatalf("Cap() = %d, want 500", got)
	}
}

func TestLineBufferSetCapacityKeepsNewest(t *testing.T) {
	t.Parallel()

	b := NewLineBuffer(5)
	for _, l := range []string{"1", "2", "3", "4", "5", "6"} {
		b.Append(l)
	}
	b.SetCapacity(2)

	if got, want := b.Lines(), []string{"5", "6"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Lines() = %v, want %v", got, want)
	}

	b.SetCapacity(4)
	b.Append("7")
	if got, want := b.Lines(), []string{"5", "6", "7"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Lines() after grow = %v, want %v", got, want)
	}
}

func TestLineBufferReplace(t *testing.T) {
	t.Parallel()

	b := NewLineBuffer(3)
	b.Append("old")
	b.Replace([]string{"w", "x", "y", "z"})

	if got, want := b.Lines(), []string{"x", "y", "z"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Lines() = %v, want %v", got, want)
	}

	b.Reset()
	if b.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", b.Len())
	}
}

type recordingSink struct {
	got []string
	err error
}

func (s *recordingSink) Deliver(ev Event) error {
	if s.err != nil {
		return s.err
	}
	s.got = append(s.got, ev.Line)
	return nil
}

func TestBroadcasterDeliversInOrder(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	first := &recordingSink{}
	second := &recordingSink{}
	reg.Attach(first)
	reg.Attach(second)

	b := NewBroadcaster(NewLineBuffer(10), reg)
	b.Ingest("x")
	b.Ingest("")
	b.Ingest("y")

	want := []string{"x", "y"}
	if !reflect.DeepEqual(first.got, want) {
		t.Fatalf("first = %v, want %v", first.got, want)
	}
	if !reflect.DeepEqual(second.got, want) {
		t.Fatalf("second = %v, want %v", second.got, want)
	}
	if got := b.Buffer().Lines(); !reflect.DeepEqual(got, want) {
		t.Fatalf("buffer = %v, want %v", got, want)
	}
}

func TestBroadcasterSwallowsSinkErrors(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	broken := &recordingSink{err: errors.New("closed")}
	healthy := &recordingSink{}
	reg.Attach(broken)
	reg.Attach(healthy)

	b := NewBroadcaster(NewLineBuffer(10), reg)
	b.Ingest("a")
	b.Ingest("b")

	if want := []string{"a", "b"}; !reflect.DeepEqual(healthy.got, want) {
		t.Fatalf("healthy = %v, want %v", healthy.got, want)
	}
	if b.Failures() != 2 {
		t.Fatalf("Failures() = %d, want 2", b.Failures())
	}
	if reg.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", reg.Len())
	}
}

func TestRegistryDetach(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	s := &recordingSink{}
	id := reg.Attach(s)

	if !reg.Detach(id) {
		t.Fatal("Detach() = false, want true")
	}
	if reg.Detach(id) {
		t.Fatal("second Detach() = true, want false")
	}

	b := NewBroadcaster(NewLineBuffer(10), reg)
	b.Ingest("after")
	if len(s.got) != 0 {
		t.Fatalf("detached sink got %v", s.got)
	}
}

func TestLateSubscriberSeesOnlyNewLines(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	b := NewBroadcaster(NewLineBuffer(10), reg)
	b.Ingest("before")

	s := &recordingSink{}
	reg.Attach(s)
	b.Ingest("after")

	if want := []string{"after"}; !reflect.DeepEqual(s.got, want) {
		t.Fatalf("got %v, want %v", s.got, want)
	}
}

func TestChanSinkDropsWhenFull(t *testing.T) {
	t.Parallel()

	s := NewChanSink(1)
	if err := s.Deliver(Event{Line: "a"}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if err := s.Deliver(Event{Line: "b"}); !errors.Is(err, ErrSinkFull) {
		t.Fatalf("Deliver on full = %v, want ErrSinkFull", err)
	}
	if ev := <-s.Events(); ev.Line != "a" {
		t.Fatalf("Line = %q, want a", ev.Line)
	}
}
