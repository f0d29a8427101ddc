package domain

import "testing"

func TestEpisode_Transition(t *testing.T) {
	tests := []struct {
		name    string
		path    []EpisodeState
		wantErr bool
	}{
		{"recovered path", []EpisodeState{StateAnalyzed, StateExecuting, StateRecovered}, false},
		{"unrecovered path", []EpisodeState{StateAnalyzed, StateExecuting, StateUnrecovered}, false},
		{"escalated path", []EpisodeState{StateAnalyzed, StateEscalated}, false},
		{"skip analysis", []EpisodeState{StateExecuting}, true},
		{"escalate mid-execution", []EpisodeState{StateAnalyzed, StateExecuting, StateEscalated}, true},
		{"leave terminal state", []EpisodeState{StateAnalyzed, StateEscalated, StateExecuting}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep := &Episode{ID: "ep-1", State: StateDetected}

			var err error
			for _, next := range tt.path {
				if err = ep.Transition(next); err != nil {
					break
				}
			}

			if tt.wantErr && err == nil {
				t.Error("expected transition error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected transition error: %v", err)
			}
		})
	}
}

func TestEpisodeState_Terminal(t *testing.T) {
	terminal := []EpisodeState{StateRecovered, StateUnrecovered, StateEscalated}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}

	active := []EpisodeState{StateDetected, StateAnalyzed, StateExecuting}
	for _, s := range active {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
