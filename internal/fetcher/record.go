package fetcher

import (
	"encoding/json"
	"time"
)

// Record is one feed entry plus its enrichment state.
type Record struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Abstract  string    `json:"abstract"`
	Authors   []string  `json:"authors"`
	Link      string    `json:"link"`
	Published time.Time `json:"published"`
	Category  string    `json:"category,omitempty"`
	Fact      FactState `json:"fact"`
}

// WithFact returns a copy of r carrying the given fact state.
// A Ready fact is never replaced by Pending.
func (r Record) WithFact(f FactState) Record {
	out := r
	out.Authors = append([]string(nil), r.Authors...)
	if r.Fact.IsReady() && !f.IsReady() {
		return out
	}
	out.Fact = f
	return out
}

// FactState is either Pending or Ready(text). The zero value is Pending.
type FactState struct {
	ready bool
	text  string
}

// Pending is the state of every freshly parsed record.
func Pending() FactState {
	return FactState{}
}

// Ready wraps a generated fact.
func Ready(text string) FactState {
	return FactState{ready: true, text: text}
}

func (f FactState) IsReady() bool {
	return f.ready
}

// Text returns the fact and true once Ready.
func (f FactState) Text() (string, bool) {
	return f.text, f.ready
}

func (f FactState) String() string {
	if !f.ready {
		return "pending"
	}
	return f.text
}

type factJSON struct {
	Status string `json:"status"`
	Text   string `json:"text,omitempty"`
}

// MarshalJSON renders the fact as {"status":"pending"} or {"status":"ready","text":...}.
func (f FactState) MarshalJSON() ([]byte, error) {
	fj := factJSON{Status: "pending"}
	if f.ready {
		fj = factJSON{Status: "ready", Text: f.text}
	}
	return json.Marshal(fj)
}

func (f *FactState) UnmarshalJSON(data []byte) error {
	var fj factJSON
	if err := json.Unmarshal(data, &fj); err != nil {
		return err
	}
	*f = FactState{ready: fj.Status == "ready", text: fj.Text}
	return nil
}
