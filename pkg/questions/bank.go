// Package questions loads the static exam template bank.
package questions

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
)

const (
	PartOneOne = "1.1"
	PartOneTwo = "1.2"
	PartTwo    = "2"
	PartThree  = "3"
)

// PartOrder is the fixed exam progression.
var PartOrder = []string{PartOneOne, PartOneTwo, PartTwo, PartThree}

// TimeLimits is the per-part answer ceiling in seconds.
var TimeLimits = map[string]int{
	PartOneOne: 30,
	PartOneTwo: 30,
	PartTwo:    60,
	PartThree:  120,
}

type Part struct {
	Questions []string `json:"questions"`
	Images    []string `json:"images"`
}

type Debate struct {
	Topic         string   `json:"topic"`
	ForPoints     []string `json:"for_points"`
	AgainstPoints []string `json:"against_points"`
}

type Test struct {
	ID     int             `json:"id"`
	Parts  map[string]Part `json:"parts"`
	Debate Debate          `json:"debate"`
}

// Questions returns the question list of a part; part 3 has the single debate
// topic as its prompt.
func (t *Test) Questions(part string) []string {
	if part == PartThree {
		return []string{t.Debate.Topic}
	}
	return t.Parts[part].Questions
}

func (t *Test) Images(part string) []string {
	return t.Parts[part].Images
}

type Bank struct {
	tests []Test
	rand  *rand.Rand
}

type bankFile struct {
	Tests []json.RawMessage `json:"tests"`
}

type testFile struct {
	ID    int                        `json:"id"`
	Parts map[string]json.RawMessage `json:"parts"`
}

type debatePart struct {
	Topic         string   `json:"topic"`
	ForPoints     []string `json:"for_points"`
	AgainstPoints []string `json:"against_points"`
}

// Load reads and validates the bank once at startup.
func Load(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Bank, error) {
	var raw bankFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode question bank: %w", err)
	}
	if len(raw.Tests) == 0 {
		return nil, errors.New("question bank has no tests")
	}

	tests := make([]Test, 0, len(raw.Tests))
	for i, rawTest := range raw.Tests {
		test, err := parseTest(rawTest)
		if err != nil {
			return nil, fmt.Errorf("test %d: %w", i, err)
		}
		tests = append(tests, test)
	}
	return &Bank{tests: tests, rand: rand.New(rand.NewSource(rand.Int63()))}, nil
}

func parseTest(raw json.RawMessage) (Test, error) {
	var tf testFile
	if err := json.Unmarshal(raw, &tf); err != nil {
		return Test{}, err
	}

	test := Test{ID: tf.ID, Parts: make(map[string]Part)}
	for _, part := range []string{PartOneOne, PartOneTwo, PartTwo} {
		rawPart, ok := tf.Parts[part]
		if !ok {
			return Test{}, fmt.Errorf("missing part %q", part)
		}
		var p Part
		if err := json.Unmarshal(rawPart, &p); err != nil {
			return Test{}, fmt.Errorf("part %q: %w", part, err)
		}
		if len(p.Questions) == 0 {
			return Test{}, fmt.Errorf("part %q has no questions", part)
		}
		test.Parts[part] = p
	}

	rawDebate, ok := tf.Parts[PartThree]
	if !ok {
		return Test{}, fmt.Errorf("missing part %q", PartThree)
	}
	var d debatePart
	if err := json.Unmarshal(rawDebate, &d); err != nil {
		return Test{}, fmt.Errorf("part %q: %w", PartThree, err)
	}
	if d.Topic == "" {
		return Test{}, fmt.Errorf("part %q has no debate topic", PartThree)
	}
	test.Debate = Debate{
		Topic:         d.Topic,
		ForPoints:     d.ForPoints,
		AgainstPoints: d.AgainstPoints,
	}
	return test, nil
}

func (b *Bank) Len() int {
	return len(b.tests)
}

// Random picks one template for a new exam run.
func (b *Bank) Random() *Test {
	test := b.tests[b.rand.Intn(len(b.tests))]
	return &test
}

func (b *Bank) Tests() []Test {
	return b.tests
}

// ByID returns nil when the template is unknown.
func (b *Bank) ByID(id int) *Test {
	for i := range b.tests {
		if b.tests[i].ID == id {
			test := b.tests[i]
			return &test
		}
	}
	return nil
}

// NextPart returns the part after the given one, or "" past the last.
func NextPart(part string) string {
	for i, p := range PartOrder {
		if p == part && i+1 < len(PartOrder) {
			return PartOrder[i+1]
		}
	}
	return ""
}
