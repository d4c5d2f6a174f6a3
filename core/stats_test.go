package orchestration

import (
	"testing"
	"time"
)

func TestStatisticsRecordAggregates(t *testing.T) {
	stats := newStatistics()
	base := time.Now()

	stats.record(Turn{Speaker: "alex", StartedAt: base, EndedAt: base.Add(2 * time.Second)})
	stats.record(Turn{Speaker: "jordan", StartedAt: base, EndedAt: base.Add(4 * time.Second)})
	stats.record(Turn{Speaker: AudienceSpeaker, IsAudience: true, StartedAt: base, EndedAt: base.Add(3 * time.Second)})
	stats.record(Turn{Speaker: "alex", StartedAt: base, EndedAt: base.Add(3 * time.Second)})

	snapshot := stats.Snapshot("alex")

	if snapshot.TotalTurns != 4 || snapshot.AgentTurns != 3 || snapshot.AudienceTurns != 1 {
		t.Fatalf("unexpected counts: %+v", snapshot)
	}
	if snapshot.AverageTurnDuration != 3*time.Second {
		t.Fatalf("expected 3s average, got %v", snapshot.AverageTurnDuration)
	}
	if snapshot.TurnsByAgent["alex"] != 2 || snapshot.TurnsByAgent["jordan"] != 1 {
		t.Fatalf("unexpected per-speaker counts: %v", snapshot.TurnsByAgent)
	}
	if snapshot.TurnsByAgent[AudienceSpeaker] != 1 {
		t.Fatalf("expected audience turns under %q, got %v", AudienceSpeaker, snapshot.TurnsByAgent)
	}
	if snapshot.CurrentSpeaker != "alex" {
		t.Fatalf("expected current speaker to pass through, got %q", snapshot.CurrentSpeaker)
	}

	sum := 0
	for _, count := range snapshot.TurnsByAgent {
		sum += count
	}
	if sum != snapshot.TotalTurns {
		t.Fatalf("per-speaker counts sum to %d, total is %d", sum, snapshot.TotalTurns)
	}
}

func TestStatisticsSpeakerOrderIsFirstSeen(t *testing.T) {
	stats := newStatistics()

	stats.trackSpeaker("alex")
	stats.trackSpeaker("jordan")
	stats.record(Turn{Speaker: "casey"})
	stats.record(Turn{Speaker: "alex"})
	stats.trackSpeaker("casey")

	snapshot := stats.Snapshot("")

	want := []string{"alex", "jordan", "casey"}
	if len(snapshot.SpeakerOrder) != len(want) {
		t.Fatalf("expected %v, got %v", want, snapshot.SpeakerOrder)
	}
	for i, id := range want {
		if snapshot.SpeakerOrder[i] != id {
			t.Fatalf("expected %v, got %v", want, snapshot.SpeakerOrder)
		}
	}

	if snapshot.TurnsByAgent["jordan"] != 0 {
		t.Fatalf("expected tracked-but-silent speaker to count zero, got %d", snapshot.TurnsByAgent["jordan"])
	}
}

func TestStatisticsSnapshotIsACopy(t *testing.T) {
	stats := newStatistics()
	stats.record(Turn{Speaker: "alex"})

	snapshot := stats.Snapshot("")
	snapshot.TurnsByAgent["alex"] = 99
	snapshot.SpeakerOrder[0] = "mutated"

	fresh := stats.Snapshot("")
	if fresh.TurnsByAgent["alex"] != 1 || fresh.SpeakerOrder[0] != "alex" {
		t.Fatalf("snapshot mutation leaked into internal state: %+v", fresh)
	}
}
