package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Wan-Video/fmsolvers"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

var convergeCmd = &cobra.Command{
	Use:   "converge",
	Short: "Measure the final error of every order over a sweep of step counts",
	Args:  cobra.NoArgs,
	RunE:  ConvergeHandler,
}

func init() {
	convergeCmd.Flags().String("solver", "dpm", "solver family (dpm, unipc)")
	convergeCmd.Flags().String("method", "multistep", "DPM method (multistep, singlestep)")
	convergeCmd.Flags().String("skip", string(fmsolvers.TimeUniform), "schedule spacing")
	convergeCmd.Flags().String("model", "gaussian", "analytic model (gaussian, decay)")
	convergeCmd.Flags().IntSlice("steps", []int{5, 10, 20, 40, 80}, "step counts to sweep")
	convergeCmd.Flags().Int("reference", 0, "use an RK4 reference with this many steps instead of the closed form")
	convergeCmd.Flags().String("plot", "", "save a log-log plot of the errors to this PNG file")
	rootCmd.AddCommand(convergeCmd)
}

// ConvergeHandler prints the error table and optionally plots it.
func ConvergeHandler(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	solver, _ := flags.GetString("solver")
	method, _ := flags.GetString("method")
	skip, _ := flags.GetString("skip")
	modelName, _ := flags.GetString("model")
	steps, _ := flags.GetIntSlice("steps")
	refSteps, _ := flags.GetInt("reference")
	plotPath, _ := flags.GetString("plot")

	var model fmsolvers.ClosedForm
	switch modelName {
	case "gaussian":
		model = fmsolvers.GaussianFlow{Mean: 0.7, Std: 0.3}
	case "decay":
		model = fmsolvers.ExponentialDecay{Rate: 1}
	default:
		return fmt.Errorf("unknown model `%s`", modelName)
	}
	noise, err := fmsolvers.NewNoise([]int{64}, 1)
	if err != nil {
		return err
	}
	exact := model.ExactAt(noise, 0)
	if refSteps > 0 {
		if exact, err = fmsolvers.ReferenceSolution(cmd.Context(), model, noise, nil, refSteps); err != nil {
			return err
		}
	}

	errs := make([]plotter.XYs, fmsolvers.MaxOrder)
	var data [][]string
	for _, n := range steps {
		row := []string{strconv.Itoa(n)}
		for order := 1; order <= fmsolvers.MaxOrder; order++ {
			conf := fmsolvers.Config{NumSteps: n, Order: order, SkipType: fmsolvers.SkipType(skip), Solver: solver, Method: method}
			s, err := fmsolvers.NewSampler(model, conf, fmsolvers.WithLogger(logger("converge")))
			if err != nil {
				return err
			}
			out, err := s.Run(cmd.Context(), noise, nil)
			if err != nil {
				return err
			}
			e := out.MaxAbsDiff(exact)
			row = append(row, fmt.Sprintf("%.3e", e), strconv.Itoa(s.ExpectedEvaluations()))
			if e > 0 {
				errs[order-1] = append(errs[order-1], plotter.XY{X: float64(n), Y: e})
			}
		}
		data = append(data, row)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"STEPS", "ORDER 1", "NFE", "ORDER 2", "NFE", "ORDER 3", "NFE"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.AppendBulk(data)
	table.Render()

	if plotPath == "" {
		return nil
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s/%s on %s (%s)", solver, method, modelName, skip)
	p.X.Label.Text = "steps"
	p.Y.Label.Text = "max abs error"
	p.X.Scale = plot.LogScale{}
	p.Y.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	var lines []interface{}
	for i, xys := range errs {
		if len(xys) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("order %d", i+1), xys)
	}
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return err
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, plotPath); err != nil {
		return err
	}
	fmt.Printf("Saved convergence plot to %s\n", plotPath)
	return nil
}
