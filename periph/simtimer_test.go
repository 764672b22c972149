package periph

import "testing"

func newTestSim(t *testing.T, width uint, readCost uint32) (*CPU, *SimTimer, *[]int) {
	t.Helper()
	cpu := NewCPU()
	sim := NewSimTimer(cpu, 0, width, readCost)
	var matches []int
	if err := sim.Init(1000000, func(ch int) { matches = append(matches, ch) }); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return cpu, sim, &matches
}

func TestSimTimerWraps(t *testing.T) {
	_, sim, _ := newTestSim(t, 8, 0)

	sim.Advance(300)
	if sim.Peek() != 300-256 {
		t.Errorf("Expected counter %d, got %d", 300-256, sim.Peek())
	}
	if sim.Elapsed() != 300 {
		t.Errorf("Expected 300 elapsed ticks, got %d", sim.Elapsed())
	}
}

func TestSimTimerReadCost(t *testing.T) {
	_, sim, _ := newTestSim(t, 16, 2)

	first := sim.Read()
	second := sim.Read()
	if first != 2 || second != 4 {
		t.Errorf("Expected reads 2 and 4, got %d and %d", first, second)
	}
}

func TestSimTimerPaceReads(t *testing.T) {
	_, sim, _ := newTestSim(t, 16, 1)
	sim.PaceReads(3)

	var got []uint32
	for i := 0; i < 6; i++ {
		got = append(got, sim.Read())
	}
	want := []uint32{0, 0, 1, 1, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected reads %v, got %v", want, got)
		}
	}
}

func TestSimTimerCompareIsOneShot(t *testing.T) {
	_, sim, matches := newTestSim(t, 8, 0)

	sim.SetAbsolute(1, 100)
	sim.Advance(99)
	if len(*matches) != 0 {
		t.Fatal("Matched early")
	}
	sim.Advance(1)
	if len(*matches) != 1 || (*matches)[0] != 1 {
		t.Fatalf("Expected one match on channel 1, got %v", *matches)
	}
	sim.Advance(1000)
	if len(*matches) != 1 {
		t.Errorf("Compare matched again without rearm: %v", *matches)
	}
	if _, armed := sim.Armed(1); armed {
		t.Error("Channel still armed after match")
	}
}

func TestSimTimerCompareAtCurrentValueWaitsFullPeriod(t *testing.T) {
	_, sim, matches := newTestSim(t, 8, 0)
	sim.Advance(10)

	sim.SetAbsolute(0, 10)
	sim.Advance(255)
	if len(*matches) != 0 {
		t.Fatal("Matched before a full period")
	}
	sim.Advance(1)
	if len(*matches) != 1 {
		t.Errorf("Expected match after a full period, got %v", *matches)
	}
}

func TestSimTimerMaskedMatchPendsUntilRestore(t *testing.T) {
	cpu, sim, matches := newTestSim(t, 8, 0)

	sim.SetAbsolute(0, 50)
	state := cpu.Disable()
	sim.Advance(60)
	if len(*matches) != 0 {
		t.Fatal("Match delivered while masked")
	}
	cpu.Restore(state)
	if len(*matches) != 1 {
		t.Errorf("Expected pending match after restore, got %v", *matches)
	}
}

func TestSimTimerRearmClearsPending(t *testing.T) {
	cpu, sim, matches := newTestSim(t, 8, 0)

	sim.SetAbsolute(0, 50)
	state := cpu.Disable()
	sim.Advance(60)
	sim.SetAbsolute(0, 200)
	cpu.Restore(state)
	if len(*matches) != 0 {
		t.Fatalf("Stale match delivered after rearm: %v", *matches)
	}

	sim.Advance(140)
	if len(*matches) != 1 {
		t.Errorf("Expected match at new value, got %v", *matches)
	}
}

func TestSimTimerRecordsWrites(t *testing.T) {
	_, sim, _ := newTestSim(t, 16, 0)

	sim.SetAbsolute(0, 0x12345)
	sim.Advance(7)
	sim.SetAbsolute(2, 9)

	writes := sim.Writes()
	if len(writes) != 2 {
		t.Fatalf("Expected 2 writes, got %d", len(writes))
	}
	if writes[0].Value != 0x2345 {
		t.Errorf("Expected write masked to counter width, got %#x", writes[0].Value)
	}
	if writes[1].Channel != 2 || writes[1].At != 7 {
		t.Errorf("Unexpected second write %+v", writes[1])
	}

	if err := sim.SetAbsolute(NumChannels, 0); err == nil {
		t.Error("Expected error for bad channel")
	}
}

func TestSimTimerDoubleInit(t *testing.T) {
	_, sim, _ := newTestSim(t, 16, 0)
	if err := sim.Init(1000000, func(int) {}); err == nil {
		t.Error("Expected error on second Init")
	}
}
