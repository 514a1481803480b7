package guess

import (
	"math"
	"strconv"
	"testing"

	"github.com/nao1215/mkattack/internal/population"
	"github.com/nao1215/mkattack/internal/scheme"
)

func dist(f scheme.Field, values ...string) population.Distribution {
	d := population.Distribution{Field: f}
	for i, v := range values {
		d.Entries = append(d.Entries, population.Entry{Value: v, Token: f.Canonical(v), Count: len(values) - i})
	}
	return d
}

func testSnapshot(k int) *population.Snapshot {
	return population.SnapshotOf(k,
		dist(scheme.FirstName, "Anna", "Andreas", "Ben"),
		dist(scheme.FirstInitial, "A", "a", "B"),
		dist(scheme.LastName, "Schmidt", "Schmitt", "Meyer"),
		dist(scheme.DOB, "1985-06-23", "1990-01-02"),
	)
}

func mustScheme(t *testing.T, id string) *scheme.Scheme {
	t.Helper()
	s, ok := scheme.Builtin().Get(id)
	if !ok {
		t.Fatalf("scheme %s not registered", id)
	}
	return s
}

func TestGenerator_Size(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		id   string
		want int
	}{
		{name: "plain fields", id: "mk1", want: 3 * 3 * 2},
		{name: "initials collapse", id: "mk2", want: 2 * 3 * 2},
		{name: "soundex collapses Schmidt and Schmitt", id: "mk4", want: 2 * 2},
		{name: "missing year_of_birth yields nothing", id: "mk5", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := New(mustScheme(t, tt.id), testSnapshot(3))
			if got := g.Size(); got != tt.want {
				t.Errorf("Size() = %d, want %d", got, tt.want)
			}
			count := 0
			for range g.All() {
				count++
			}
			if count != tt.want {
				t.Errorf("All() yielded %d guesses, want %d", count, tt.want)
			}
		})
	}
}

func TestGenerator_SizeSaturates(t *testing.T) {
	t.Parallel()

	names := make([]string, 2000)
	for i := range names {
		names[i] = "name" + strconv.Itoa(i)
	}
	fields := make([]scheme.FieldSpec, 7)
	for i := range fields {
		fields[i] = scheme.Plain(scheme.FirstName)
	}
	s := scheme.MustDefine("seven_names", fields)
	g := New(s, population.SnapshotOf(2000, dist(scheme.FirstName, names...)))

	if got := g.Size(); got != math.MaxInt {
		t.Errorf("Size() = %d, want math.MaxInt", got)
	}
}

func TestGenerator_EmptyDistribution(t *testing.T) {
	t.Parallel()

	// mk5 needs year_of_birth, which the snapshot lacks.
	g := New(mustScheme(t, "mk5"), testSnapshot(3))
	if g.Size() != 0 {
		t.Fatalf("Size() = %d, want 0", g.Size())
	}
	for range g.All() {
		t.Fatal("empty guess space must yield nothing")
	}
	if g.Shards() != nil {
		t.Error("empty guess space must have no shards")
	}
}

func TestGenerator_Candidates(t *testing.T) {
	t.Parallel()

	g := New(mustScheme(t, "mk8"), testSnapshot(3))
	got := g.Candidates(2)
	if len(got) != 2 || got[0].Token != "198506" || got[0].Raw != "1985-06-23" {
		t.Errorf("dob year-month candidates = %+v", got)
	}

	capped := New(mustScheme(t, "mk1"), testSnapshot(2))
	if n := len(capped.Candidates(0)); n != 2 {
		t.Errorf("candidates capped at K: got %d, want 2", n)
	}
}

func TestGenerator_Recoverability(t *testing.T) {
	t.Parallel()

	s := mustScheme(t, "mk1")
	target := s.Hash(scheme.Row{scheme.FirstName: "Ben", scheme.LastName: "Meyer", scheme.DOB: "1990-01-02"})

	found := false
	for d, tuple := range New(s, testSnapshot(3)).All() {
		if d == target {
			found = true
			if tuple[0].Raw != "Ben" || tuple[1].Raw != "Meyer" {
				t.Errorf("recovered tuple = %+v", tuple)
			}
		}
	}
	if !found {
		t.Error("digest of in-distribution values must be in the guess space")
	}
}

func TestGenerator_Order(t *testing.T) {
	t.Parallel()

	g := New(mustScheme(t, "mk1"), testSnapshot(3))
	var first, second Tuple
	i := 0
	for _, tuple := range g.All() {
		switch i {
		case 0:
			first = tuple
		case 1:
			second = tuple
		}
		i++
	}
	if first[0].Raw != "Anna" || first[2].Raw != "1985-06-23" {
		t.Errorf("first guess = %+v", first)
	}
	if second[0].Raw != "Anna" || second[2].Raw != "1990-01-02" {
		t.Errorf("innermost field must advance fastest, second guess = %+v", second)
	}
}

func TestGenerator_Restartable(t *testing.T) {
	t.Parallel()

	g := New(mustScheme(t, "mk6"), testSnapshot(3))
	var a, b []string
	for d := range g.All() {
		a = append(a, d)
	}
	for d := range g.All() {
		b = append(b, d)
	}
	if len(a) == 0 || len(a) != len(b) {
		t.Fatalf("enumerations differ in length: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("enumeration %d differs", i)
		}
	}
}

func TestGenerator_Shards(t *testing.T) {
	t.Parallel()

	g := New(mustScheme(t, "mk1"), testSnapshot(3))
	var whole []string
	for d := range g.All() {
		whole = append(whole, d)
	}

	var joined []string
	shards := g.Shards()
	if len(shards) != 3 {
		t.Fatalf("Shards() = %d, want 3", len(shards))
	}
	for _, sh := range shards {
		for d := range sh.All() {
			joined = append(joined, d)
		}
	}
	if len(joined) != len(whole) {
		t.Fatalf("shards yield %d guesses, want %d", len(joined), len(whole))
	}
	for i := range whole {
		if whole[i] != joined[i] {
			t.Fatalf("shard order differs at %d", i)
		}
	}
}

func TestGenerator_EarlyStop(t *testing.T) {
	t.Parallel()

	g := New(mustScheme(t, "mk1"), testSnapshot(3))
	n := 0
	for range g.All() {
		n++
		if n == 4 {
			break
		}
	}
	if n != 4 {
		t.Errorf("iteration did not stop at 4, got %d", n)
	}
}
