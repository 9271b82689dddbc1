package main

import (
	"encoding/csv"
	"io"
	"math"
	"slices"
	"strconv"
)

// evalLog appends one optimize_log.csv row per evaluation and remembers
// the best parameters seen so far.
type evalLog struct {
	w     *csv.Writer
	count int

	best   float64
	bestAt int
	bestX  []float64
}

// newEvalLog writes the header: eval, fitness, then one column per spec.
func newEvalLog(w io.Writer, specs []ParamSpec) (*evalLog, error) {
	header := []string{"eval", "fitness"}
	for _, spec := range specs {
		header = append(header, spec.Name)
	}
	l := &evalLog{w: csv.NewWriter(w), best: math.Inf(1)}
	if err := l.w.Write(header); err != nil {
		return nil, err
	}
	l.w.Flush()
	return l, l.w.Error()
}

// record logs the clamped values x that produced fitness. Rows are flushed
// immediately so an interrupted run keeps its log.
func (l *evalLog) record(fitness float64, x []float64) error {
	l.count++
	if fitness < l.best {
		l.best = fitness
		l.bestAt = l.count
		l.bestX = slices.Clone(x)
	}

	row := make([]string, 0, len(x)+2)
	row = append(row, strconv.Itoa(l.count), strconv.FormatFloat(fitness, 'f', 6, 64))
	for _, v := range x {
		row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
	}
	if err := l.w.Write(row); err != nil {
		return err
	}
	l.w.Flush()
	return l.w.Error()
}
