package lookup

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/FocuswithJustin/BirthdayVerse/core/birthday"
	"github.com/FocuswithJustin/BirthdayVerse/core/catalog"
	"github.com/FocuswithJustin/BirthdayVerse/core/errors"
	"github.com/FocuswithJustin/BirthdayVerse/core/verse"
)

func intPtr(v int) *int { return &v }

type countingLookup struct {
	mu     sync.Mutex
	calls  int
	verses []verse.Verse
	err    error
}

func (l *countingLookup) FetchChapter(ctx context.Context, book string, chapter int) ([]verse.Verse, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.verses, l.err
}

func newService(l verse.Lookup) *Service {
	return NewService(verse.NewResolver(catalog.Default(), l, verse.Options{}))
}

func TestKindJSON(t *testing.T) {
	for kind, name := range kindNames {
		data, err := json.Marshal(kind)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != `"`+name+`"` {
			t.Errorf("Marshal(%v) = %s", kind, data)
		}
		var back Kind
		if err := json.Unmarshal(data, &back); err != nil || back != kind {
			t.Errorf("Unmarshal(%s) = %v, %v", data, back, err)
		}
	}

	var k Kind
	if err := json.Unmarshal([]byte(`"exploded"`), &k); err == nil {
		t.Error("expected error for unknown kind")
	}
	if got := Kind(42).String(); got != "kind(42)" {
		t.Errorf("String() = %q", got)
	}
}

func TestStateJSON(t *testing.T) {
	data, err := json.Marshal(Success(3, verse.Result{Text: "Jesus wept.", Reference: "john 11:35"}))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"state":"success","request_id":3,"result":{"text":"Jesus wept.","reference":"john 11:35"}}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}

	data, _ = json.Marshal(Failed(4, FailedMessage))
	want = `{"state":"failed","request_id":4,"message":"Failed to fetch verse. Please try again."}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}
}

func TestStateConstructors(t *testing.T) {
	if Idle().Terminal() || Loading(1).Terminal() {
		t.Error("idle and loading must not be terminal")
	}
	if !Success(1, verse.Fallback()).Terminal() || !Failed(1, "x").Terminal() {
		t.Error("success and failed must be terminal")
	}
	if s := Idle().WithRequestID(9); s.RequestID != 9 || s.Kind != KindIdle {
		t.Errorf("WithRequestID = %+v", s)
	}
}

func TestTrackerLastWriteWins(t *testing.T) {
	tr := NewTracker()
	if tr.Current().Kind != KindIdle {
		t.Fatal("new tracker should be idle")
	}

	first := tr.Begin()
	second := tr.Begin()
	if second <= first {
		t.Fatalf("request ids not increasing: %d then %d", first, second)
	}
	if cur := tr.Current(); cur.Kind != KindLoading || cur.RequestID != second {
		t.Fatalf("Current() = %+v, want loading #%d", cur, second)
	}

	// The older request finishes late and must be dropped.
	if tr.Complete(Success(first, verse.Result{Text: "stale"})) {
		t.Error("stale result was accepted")
	}
	if tr.Current().Kind != KindLoading {
		t.Error("stale result changed the state")
	}

	if !tr.Complete(Success(second, verse.Result{Text: "fresh"})) {
		t.Fatal("latest result was rejected")
	}
	if cur := tr.Current(); cur.Result == nil || cur.Result.Text != "fresh" {
		t.Errorf("Current() = %+v, want fresh result", cur)
	}

	// A second completion for the same request is ignored.
	if tr.Complete(Failed(second, "late failure")) {
		t.Error("duplicate completion accepted")
	}
}

func TestTrackerReset(t *testing.T) {
	tr := NewTracker()
	id := tr.Begin()
	if s := tr.Reset(); s.Kind != KindIdle {
		t.Errorf("Reset() = %+v", s)
	}
	if tr.Complete(Success(id, verse.Fallback())) {
		t.Error("in-flight result accepted after Reset")
	}
	if tr.Latest() <= id {
		t.Error("Reset did not invalidate in-flight id")
	}
}

func TestTrackerConcurrentBegin(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	ids := make(chan uint64, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- tr.Begin()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate request id %d", id)
		}
		seen[id] = true
	}
	if tr.Latest() != 100 {
		t.Errorf("Latest() = %d, want 100", tr.Latest())
	}
}

func TestServiceLookupIncompleteInput(t *testing.T) {
	l := &countingLookup{verses: []verse.Verse{{Number: 1, Text: "x"}}}
	svc := newService(l)

	s := svc.Lookup(context.Background(), 1, Input{Day: intPtr(15)})
	if s.Kind != KindIdle {
		t.Errorf("Lookup() kind = %v, want idle", s.Kind)
	}
	if s.Result != nil || s.Message != "" {
		t.Errorf("incomplete input produced result or error: %+v", s)
	}
	if l.calls != 0 {
		t.Errorf("lookup called %d times for incomplete input", l.calls)
	}
}

func TestServiceLookupSuccess(t *testing.T) {
	l := &countingLookup{verses: []verse.Verse{{Number: 1, Text: "a"}, {Number: 2, Text: "b"}, {Number: 3, Text: "c"}}}
	svc := newService(l)

	s := svc.Lookup(context.Background(), 7, Input{Day: intPtr(15), Month: intPtr(5), Year: intPtr(1990)})
	if s.Kind != KindSuccess || s.RequestID != 7 {
		t.Fatalf("Lookup() = %+v", s)
	}
	// 2010 mod 3 = 0
	if s.Result.Reference != "colossians 3:1" || s.Result.Text != "a" {
		t.Errorf("Result = %+v", s.Result)
	}
}

func TestServiceLookupNotFoundIsFallback(t *testing.T) {
	svc := newService(&countingLookup{err: errors.ErrNotFound})
	s := svc.Lookup(context.Background(), 1, NewInput(birthday.Date{Day: 15, Month: 5, Year: 1990}))
	if s.Kind != KindSuccess {
		t.Fatalf("Lookup() = %+v, want success", s)
	}
	if s.Result.Reference != verse.FallbackReference || s.Result.Text != verse.FallbackText {
		t.Errorf("Result = %+v, want fallback", s.Result)
	}
}

func TestServiceLookupTransportFailure(t *testing.T) {
	svc := newService(&countingLookup{err: errors.NewTransport("bible-api", "fetch chapter", 500, nil)})
	s := svc.Lookup(context.Background(), 2, NewInput(birthday.Date{Day: 1, Month: 1, Year: 2000}))
	if s.Kind != KindFailed || s.Message != FailedMessage {
		t.Errorf("Lookup() = %+v, want failed with %q", s, FailedMessage)
	}
}

func TestServiceResolve(t *testing.T) {
	svc := newService(&countingLookup{verses: []verse.Verse{{Number: 1, Text: "a"}}})

	out, err := svc.Resolve(context.Background(), birthday.Date{Day: 15, Month: 5, Year: 1990})
	if err != nil {
		t.Fatal(err)
	}
	if out.Book != "colossians" || out.Candidate.Chapter != 3 || out.Candidate.BookIndex != 19 {
		t.Errorf("Resolve() = %+v", out)
	}

	if _, err := svc.Resolve(context.Background(), birthday.Date{Day: 15}); !errors.Is(err, errors.ErrIncompleteInput) {
		t.Errorf("Resolve(incomplete) error = %v", err)
	}
}

func TestMessageFor(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{errors.ErrIncompleteInput, IncompleteMessage},
		{errors.NewParse("date", "", birthday.InvalidDateMessage), birthday.InvalidDateMessage},
		{errors.NewTransport("sqlite", "query", 0, nil), FailedMessage},
		{errors.ErrInternal, FailedMessage},
	}
	for _, tt := range tests {
		if got := MessageFor(tt.err); got != tt.want {
			t.Errorf("MessageFor(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
