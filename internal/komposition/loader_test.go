package komposition

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleJSON = `{
  "metadata": {
    "bpm": 120,
    "beatsPerMeasure": 4,
    "totalBeats": 48,
    "resolution": "1920x1080",
    "renderStartBeat": 0,
    "renderEndBeat": 48
  },
  "sources": {
    "intro": "file123",
    "outro": "file456"
  },
  "segments": [
    {"id": "seg1", "startBeat": 0, "endBeat": 16, "sourceRef": "intro", "operation": "trim",
     "params": {"source_start_seconds": 2.0}},
    {"id": "seg2", "startBeat": 16, "endBeat": 32, "sourceRef": "intro", "operation": "smart_cut"},
    {"id": "seg3", "startBeat": 32, "endBeat": 48, "sourceRef": "outro", "operation": "trim",
     "effects": [{"type": "fade_out", "params": {"duration": 1.5}}]}
  ],
  "effects_tree": {
    "root": {
      "type": "sequence",
      "children": [
        {"type": "crossfade_transition", "duration": 1.0, "between": ["seg1", "seg2"],
         "children": [
           {"type": "segment", "segment": "seg1"},
           {"type": "segment", "segment": "seg2"}
         ]},
        {"type": "segment", "segment": "seg3"}
      ]
    }
  }
}`

func TestParseJSON(t *testing.T) {
	k, err := ParseJSON([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}

	if k.BPM != 120 {
		t.Fatalf("bpm = %v, want 120", k.BPM)
	}
	if k.Resolution.Width != 1920 || k.Resolution.Height != 1080 {
		t.Fatalf("resolution = %v, want 1920x1080", k.Resolution)
	}
	if len(k.Segments) != 3 {
		t.Fatalf("segment count = %d, want 3", len(k.Segments))
	}
	if k.Segments[2].Effects[0].Type != "fade_out" {
		t.Fatalf("seg3 effect = %q, want fade_out", k.Segments[2].Effects[0].Type)
	}

	root := k.EffectsTree
	if root == nil || root.Kind != KindSequence {
		t.Fatalf("root = %+v, want sequence", root)
	}
	if len(root.Children) != 2 {
		t.Fatalf("root children = %d, want 2", len(root.Children))
	}
	tr := root.Children[0]
	if tr.Kind != KindTransition || tr.Type != "crossfade_transition" {
		t.Fatalf("first child = %+v, want crossfade transition", tr)
	}
	if tr.Duration != 1.0 {
		t.Fatalf("transition duration = %v, want 1.0", tr.Duration)
	}
	if len(tr.Between) != 2 || tr.Between[0] != "seg1" || tr.Between[1] != "seg2" {
		t.Fatalf("between = %v, want [seg1 seg2]", tr.Between)
	}
	if tr.Children[0].Kind != KindLeaf || tr.Children[0].SegmentID != "seg1" {
		t.Fatalf("transition child 0 = %+v, want leaf seg1", tr.Children[0])
	}
}

func TestParseJSONMalformed(t *testing.T) {
	_, err := ParseJSON([]byte(`{"metadata": `))
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("error = %T(%v), want *ValidationError", err, err)
	}
}

func TestParseYAMLMatchesJSON(t *testing.T) {
	yamlDoc := `
metadata:
  bpm: 120
  beatsPerMeasure: 4
  totalBeats: 48
  resolution: 1920x1080
  renderStartBeat: 0
  renderEndBeat: 48
sources:
  intro: file123
segments:
  - id: seg1
    startBeat: 0
    endBeat: 16
    sourceRef: intro
    operation: trim
effects_tree:
  root:
    type: segment
    segment: seg1
`
	k, err := ParseYAML([]byte(yamlDoc))
	if err != nil {
		t.Fatalf("ParseYAML() error = %v", err)
	}
	if k.BPM != 120 || len(k.Segments) != 1 {
		t.Fatalf("unexpected decode: bpm=%v segments=%d", k.BPM, len(k.Segments))
	}
	if k.EffectsTree == nil || k.EffectsTree.SegmentID != "seg1" {
		t.Fatalf("tree = %+v, want leaf seg1", k.EffectsTree)
	}
}

func TestParseHCL(t *testing.T) {
	hclDoc := `
komposition {
  bpm               = 120
  beats_per_measure = 4
  total_beats       = 48
  resolution        = "1920x1080"

  render_range {
    start_beat = 0
    end_beat   = 48
  }

  source "intro" {
    ref = "file123"
  }

  segment "seg1" {
    start_beat = 0
    end_beat   = 16
    source     = "intro"
    operation  = "trim"
    params = {
      source_start_seconds = 2.0
    }

    effect "fade_in" {
      params = {
        duration = 0.5
      }
    }
  }

  effects_tree {
    node {
      type = "sequence"

      node {
        type    = "segment"
        segment = "seg1"
      }
    }
  }
}
`
	k, err := ParseHCL("test.hcl", []byte(hclDoc))
	if err != nil {
		t.Fatalf("ParseHCL() error = %v", err)
	}
	if k.BPM != 120 || k.TotalBeats != 48 {
		t.Fatalf("metadata = bpm %v totalBeats %d, want 120/48", k.BPM, k.TotalBeats)
	}
	if k.Sources["intro"] != "file123" {
		t.Fatalf("sources = %v, want intro->file123", k.Sources)
	}

	seg := k.Segments[0]
	if seg.ID != "seg1" || seg.Operation != "trim" {
		t.Fatalf("segment = %+v", seg)
	}
	if got := seg.Params["source_start_seconds"]; got != 2.0 {
		t.Fatalf("params.source_start_seconds = %v (%T), want 2.0", got, got)
	}
	if seg.Effects[0].Type != "fade_in" || seg.Effects[0].Params["duration"] != 0.5 {
		t.Fatalf("effects = %+v", seg.Effects)
	}

	if k.EffectsTree == nil || k.EffectsTree.Kind != KindSequence {
		t.Fatalf("tree root = %+v, want sequence", k.EffectsTree)
	}
	if k.EffectsTree.Children[0].SegmentID != "seg1" {
		t.Fatalf("tree leaf = %+v, want seg1", k.EffectsTree.Children[0])
	}
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "komp.json")
	if err := os.WriteFile(path, []byte(sampleJSON), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	k, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(k.Segments) != 3 {
		t.Fatalf("segments = %d, want 3", len(k.Segments))
	}

	if _, err := Load(filepath.Join(dir, "komp.toml")); err == nil {
		t.Fatalf("expected unsupported-format error for .toml")
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	k1, err := ParseJSON([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}
	k2, err := ParseJSON([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}

	fp1, err := k1.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	fp2, err := k2.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	if fp1 != fp2 {
		t.Fatalf("fingerprints differ across identical documents: %q vs %q", fp1, fp2)
	}

	k2.Segments[0].EndBeat = 17
	fp3, err := k2.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	if fp3 == fp1 {
		t.Fatalf("fingerprint did not change after document edit")
	}
}
