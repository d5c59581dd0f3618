package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/manningwu07/storyforge/checkpoint"
)

func (a *app) checkpoints(w io.Writer) error {
	dir := a.settings.Training.OutputDir
	ckpts, err := checkpoint.List(dir)
	if err != nil {
		return err
	}
	if len(ckpts) == 0 {
		fmt.Fprintf(w, "no checkpoints in %s\n", dir)
		return nil
	}
	for _, c := range ckpts {
		fmt.Fprintf(w, "%-24s step=%-8d %s\n", c.Name, c.Step, c.ModTime.Format("2006-01-02 15:04:05"))
	}

	latest, err := checkpoint.Resolve(dir, checkpoint.WithPolicy(a.policy), checkpoint.WithLogger(a.logger))
	if err != nil || latest == nil {
		return err
	}
	state, err := checkpoint.ReadState(*latest)
	if err != nil {
		return err
	}
	if state == nil {
		fmt.Fprintf(w, "%s has no %s\n", latest.Name, checkpoint.StateFile)
		return nil
	}
	if a.args.csv {
		return writeLossCSV(w, state)
	}
	fmt.Fprintf(w, "\n%s loss (step %d, epoch %.2f)\n", latest.Name, state.GlobalStep, state.Epoch)
	asciiPlot(w, state.Losses())
	return nil
}

// writeLossCSV writes step,epoch,loss rows for every logged training loss.
func writeLossCSV(w io.Writer, s *checkpoint.State) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"step", "epoch", "loss"})
	for _, e := range s.LogHistory {
		if e.Loss == 0 {
			continue
		}
		cw.Write([]string{
			strconv.Itoa(e.Step),
			strconv.FormatFloat(e.Epoch, 'f', 4, 64),
			strconv.FormatFloat(e.Loss, 'f', 4, 64),
		})
	}
	cw.Flush()
	return cw.Error()
}

// asciiPlot draws a crude vertical bar chart of values scaled to their max.
func asciiPlot(w io.Writer, values []float64) {
	const height = 10 // number of text rows
	n := len(values)
	if n == 0 {
		fmt.Fprintln(w, "no data to plot")
		return
	}
	top := floats.Max(values)
	if top <= 0 {
		top = 1
	}
	var b strings.Builder
	for row := height; row >= 1; row-- {
		threshold := float64(row) / float64(height)
		for _, v := range values {
			if v/top >= threshold {
				b.WriteString("█")
			} else {
				b.WriteString(" ")
			}
		}
		b.WriteString("\n")
	}
	// x-axis, labelled every 5 points
	b.WriteString(strings.Repeat("─", n) + "\n")
	for i := range values {
		if i%5 == 0 {
			b.WriteString(strconv.Itoa(i % 10))
		} else {
			b.WriteString(" ")
		}
	}
	b.WriteString("\n")
	fmt.Fprint(w, b.String())
	fmt.Fprintf(w, "max %.4f  min %.4f\n", top, floats.Min(values))
}
