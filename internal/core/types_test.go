package core

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestPeerDependenciesPreserveOrder(t *testing.T) {
	var doc struct {
		PeerDependencies PeerDependencies `json:"peerDependencies"`
	}
	data := `{"peerDependencies": {"react": "^18.0.0", "@types/react": "*", "react-dom": "^18.0.0"}}`
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	want := []string{"react", "@types/react", "react-dom"}
	if len(doc.PeerDependencies) != len(want) {
		t.Fatalf("got %d peers, want %d", len(doc.PeerDependencies), len(want))
	}
	for i, name := range want {
		if doc.PeerDependencies[i].Name != name {
			t.Errorf("peer %d = %q, want %q", i, doc.PeerDependencies[i].Name, name)
		}
	}
	if r, _ := doc.PeerDependencies.Get("@types/react"); r != "*" {
		t.Errorf("Get(@types/react) = %q, want %q", r, "*")
	}
}

func TestPeerDependenciesNullAndMissing(t *testing.T) {
	for _, data := range []string{`{}`, `{"peerDependencies": null}`, `{"peerDependencies": {}}`} {
		var doc struct {
			PeerDependencies PeerDependencies `json:"peerDependencies"`
		}
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			t.Fatalf("Unmarshal(%s) failed: %v", data, err)
		}
		if len(doc.PeerDependencies) != 0 {
			t.Errorf("Unmarshal(%s) = %v, want no peers", data, doc.PeerDependencies)
		}
	}
}

func TestPeerDependenciesRejectsArray(t *testing.T) {
	var p PeerDependencies
	if err := json.Unmarshal([]byte(`["react"]`), &p); err == nil {
		t.Error("expected error for array input")
	}
}

func TestPeerDependenciesDuplicateNameKeepsLastRange(t *testing.T) {
	var p PeerDependencies
	data := `{"react": "^17.0.0", "react-dom": "^17.0.0", "react": "^18.0.0"}`
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	want := PeerDependencies{{Name: "react", Range: "^18.0.0"}, {Name: "react-dom", Range: "^17.0.0"}}
	if !reflect.DeepEqual(p, want) {
		t.Errorf("got %+v, want %+v", p, want)
	}
}

func TestPeerDependenciesNonStringRange(t *testing.T) {
	var p PeerDependencies
	if err := json.Unmarshal([]byte(`{"react": 18, "vue": {"version": "3"}}`), &p); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if r, _ := p.Get("react"); r != "18" {
		t.Errorf("react range = %q, want %q", r, "18")
	}
	if r, _ := p.Get("vue"); r != `{"version": "3"}` {
		t.Errorf("vue range = %q", r)
	}
}

func TestMarkOptional(t *testing.T) {
	p := PeerDependencies{{Name: "react", Range: "^18"}, {Name: "vue", Range: "^3"}}
	p.MarkOptional(map[string]bool{"vue": true})

	if p[0].Optional {
		t.Error("react should not be optional")
	}
	if !p[1].Optional {
		t.Error("vue should be optional")
	}
}
