package main

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/Wan-Video/fmsolvers"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Print the timestep schedule",
	Args:  cobra.NoArgs,
	RunE:  ScheduleHandler,
}

func init() {
	scheduleCmd.Flags().Int("steps", 10, "number of steps")
	scheduleCmd.Flags().String("skip", string(fmsolvers.TimeUniform), "schedule spacing (time_uniform, time_quadratic, logSNR)")
	scheduleCmd.Flags().Float64("shift", 1, "flow shift")
	rootCmd.AddCommand(scheduleCmd)
}

// ScheduleHandler prints one row per step with its λ interval.
func ScheduleHandler(cmd *cobra.Command, args []string) error {
	steps, err := cmd.Flags().GetInt("steps")
	if err != nil {
		return err
	}
	skip, err := cmd.Flags().GetString("skip")
	if err != nil {
		return err
	}
	shift, err := cmd.Flags().GetFloat64("shift")
	if err != nil {
		return err
	}
	sched, err := fmsolvers.GenerateSchedule(steps, fmsolvers.SkipType(skip), shift)
	if err != nil {
		return err
	}

	var data [][]string
	for i := 0; i < sched.Steps(); i++ {
		from, to := sched.Interval(i)
		data = append(data, []string{
			strconv.Itoa(i),
			strconv.FormatFloat(from, 'f', 6, 64),
			strconv.FormatFloat(to, 'f', 6, 64),
			formatLambda(from),
			formatLambda(to),
		})
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"STEP", "FROM", "TO", "λ FROM", "λ TO"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
	return nil
}

func formatLambda(t float64) string {
	l := math.Log1p(-t) - math.Log(t)
	switch {
	case t >= 1:
		return "-inf"
	case t <= 0:
		return "+inf"
	}
	return fmt.Sprintf("%.4f", l)
}
