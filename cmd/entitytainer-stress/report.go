package main

import (
	"io"
	"runtime"
	"text/template"
	"time"

	"github.com/sugawarayuuta/sonnet"

	"github.com/MdFirdousMehdi/the-entitytainer/entitytainer"
)

type Report struct {
	// Configuration
	Entities        int
	Operations      int
	Seed            int64
	RemoveWithHoles bool
	ArenaBytes      int

	// Results
	TotalTime     time.Duration
	OpsPerSecond  float64
	BatchTime     Stats
	AddedEntities int64
	Removed       int64
	ChildAdds     int64
	ChildRemoves  int64
	Skipped       int64
	Final         entitytainer.Stats

	MemStatsStart runtime.MemStats `json:"-"`
	MemStatsEnd   runtime.MemStats `json:"-"`
}

type Stats struct {
	Min     time.Duration
	Max     time.Duration
	Avg     time.Duration
	Samples []time.Duration `json:"-"`
}

func (s *Stats) Finalize() {
	if len(s.Samples) == 0 {
		return
	}

	var total time.Duration
	s.Min = s.Samples[0]
	s.Max = s.Samples[0]

	for _, sample := range s.Samples {
		if sample < s.Min {
			s.Min = sample
		}
		if sample > s.Max {
			s.Max = sample
		}
		total += sample
	}
	s.Avg = total / time.Duration(len(s.Samples))
}

func (r *Report) Generate(w io.Writer) error {
	const reportTemplate = `
# Entitytainer Stress Test Report

## Test Configuration
- **Entity Universe:** {{.Entities}}
- **Operations:** {{.Operations}}
- **Seed:** {{.Seed}}
- **Remove With Holes:** {{.RemoveWithHoles}}
- **Arena Size:** {{.ArenaBytes}} bytes

## Performance Results
- **Total Test Time:** {{.TotalTime}}
- **Operations/sec:** {{printf "%.0f" .OpsPerSecond}}
- **Batch Time ({{len .BatchTime.Samples}} batches):**
  - **Avg:** {{.BatchTime.Avg}}
  - **Min:** {{.BatchTime.Min}}
  - **Max:** {{.BatchTime.Max}}

## Operation Mix
- Entity adds:    {{.AddedEntities}}
- Entity removes: {{.Removed}}
- Child adds:     {{.ChildAdds}}
- Child removes:  {{.ChildRemoves}}
- Skipped:        {{.Skipped}}

## Final Hierarchy State
- Entities: {{.Final.Entities}}, Relationships: {{.Final.Relationships}}
{{range $i, $t := .Final.Tiers}}- Tier {{$i}}: capacity {{$t.Capacity}}, buckets {{$t.UsedBuckets}}/{{$t.TotalBuckets}} used
{{end}}
## Memory Usage (Raw Bytes)
- Heap Alloc:  {{.MemStatsStart.HeapAlloc}} (start) -> {{.MemStatsEnd.HeapAlloc}} (end) -> delta: {{bsub .MemStatsEnd.HeapAlloc .MemStatsStart.HeapAlloc}}
- Total Alloc: {{.MemStatsStart.TotalAlloc}} (start) -> {{.MemStatsEnd.TotalAlloc}} (end) -> delta: {{bsub .MemStatsEnd.TotalAlloc .MemStatsStart.TotalAlloc}}
- Num GC:      {{.MemStatsStart.NumGC}} (start) -> {{.MemStatsEnd.NumGC}} (end) -> delta: {{usub .MemStatsEnd.NumGC .MemStatsStart.NumGC}}
`

	fm := template.FuncMap{
		"bsub": func(a, b uint64) int64 {
			return int64(a) - int64(b)
		},
		"usub": func(a, b uint32) uint32 {
			return a - b
		},
	}

	tmpl, err := template.New("report").Funcs(fm).Parse(reportTemplate)
	if err != nil {
		return err
	}

	return tmpl.Execute(w, r)
}

func (r *Report) GenerateJSON(w io.Writer) error {
	data, err := sonnet.Marshal(r)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = w.Write([]byte("\n"))
	return err
}
