package main

import (
	"context"
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"
	"github.com/massn/envordot"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/oqtopus-team/calibration-engine/common"
	"github.com/oqtopus-team/calibration-engine/core"
	"github.com/oqtopus-team/calibration-engine/exec"
	"github.com/oqtopus-team/calibration-engine/instdef"
	"github.com/oqtopus-team/calibration-engine/log"
	"github.com/oqtopus-team/calibration-engine/methods"
	"github.com/oqtopus-team/calibration-engine/paramstore"
	"github.com/oqtopus-team/calibration-engine/scope"
)

var versionByBuildFlag string
var parser *flags.Parser
var calexp *Calexp

func init() {
	if err := envordot.Load(false, ".env"); err != nil {
		fmt.Printf("Not found \".env\" file. Use only environment variables. Reason:%s\n", err.Error())
	} else {
		fmt.Println("Found \".env\" file. Environment variables are preferred, " +
			"but non-conflicting variables are those in the \".env\" file.")
	}
	calexp = &Calexp{}
	setParser(calexp)
}

type Calexp struct {
	Conf *core.Conf
}

func setParser(c *Calexp) {
	parser = flags.NewParser(c, flags.Default)
	parser.ShortDescription = "calibration engine"
	parser.LongDescription = "pulse-level calibration experiment engine."
	parser.AddCommand("amplitude", "run a rough amplitude scan",
		"scan the xp pulse amplitude on one qubit and fit the Rabi oscillation", newAmplitudeCmd())
}

func parse() {
	if _, err := parser.Parse(); err != nil {
		code := 1
		if fe, ok := err.(*flags.Error); ok {
			if fe.Type == flags.ErrHelp {
				code = 0
			}
		}
		if code == 1 {
			fmt.Printf("failed to parse flags, because %s\n", err)
		}
		os.Exit(code)
	}
}

func provideDIContainer() (*dig.Container, error) {
	c := dig.New()
	err := c.Provide(func() (core.Backend, error) {
		return exec.NewMockBackend(nil), nil
	})
	if err != nil {
		return &dig.Container{}, err
	}
	return c, nil
}

func main() {
	parse()
}

type amplitudeCmd struct {
	Qubit    int     `long:"qubit" description:"target qubit" default:"0"`
	MinAmp   float64 `long:"min-amp" description:"sweep start amplitude" default:"0"`
	MaxAmp   float64 `long:"max-amp" description:"sweep stop amplitude" default:"0.3"`
	Points   int     `long:"points" description:"sweep points" default:"61"`
	Duration float64 `long:"duration" description:"xp pulse duration in samples" default:"160"`
	Sigma    float64 `long:"sigma" description:"xp pulse sigma in samples" default:"40"`
}

func newAmplitudeCmd() *amplitudeCmd {
	return &amplitudeCmd{}
}

func (c *amplitudeCmd) Execute(args []string) error {
	logger, err := log.SetGlobal(calexp.Conf)
	if err != nil {
		return err
	}
	defer logger.Sync()

	core.ResetSetting()
	if err := core.ParseSettingFromPath(calexp.Conf.SettingPath); err != nil {
		zap.L().Info(fmt.Sprintf("running without setting file/reason:%s", err))
	}

	container, err := provideDIContainer()
	if err != nil {
		return err
	}
	sys := core.NewSystemComponents(container)
	if err := sys.Setup(calexp.Conf); err != nil {
		zap.L().Error(fmt.Sprintf("failed to setup system components/reason:%s", err))
		return err
	}
	defer sys.TearDown()

	scopes := scope.NewResolver(core.NewChannelSetting())
	store := paramstore.NewStore()
	registry := instdef.NewRegistry(store, scopes)

	source := fmt.Sprintf("%%xp(d%d,gaus)", c.Qubit)
	err = registry.DefinePulse("xp", []int{c.Qubit}, source, map[string]float64{
		"xp.duration": c.Duration,
		"xp.sigma":    c.Sigma,
	})
	if err != nil {
		return err
	}

	go func() {
		for raw := range sys.ResultChan {
			zap.L().Info(fmt.Sprintf("received result of job %s (%d shots)", raw.JobID, raw.Shots))
		}
	}()

	var report *exec.Report
	err = sys.Invoke(func(b core.Backend) error {
		runner, err := exec.NewRunner(b, store)
		if err != nil {
			return err
		}
		runner.PublishResults(sys.ResultChan)
		basic := methods.NewBasic1Q(store, scopes, registry)
		experiment, err := basic.RoughAmplitude(
			c.Qubit, common.Linspace(c.MinAmp, c.MaxAmp, c.Points), calexp.Conf.DefaultShots)
		if err != nil {
			return err
		}
		report, err = runner.Run(context.Background(), experiment)
		return err
	})
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to run amplitude scan/reason:%s", err))
		return err
	}

	for series, result := range report.Results {
		if result == nil {
			zap.L().Warn(fmt.Sprintf("fit failed for series %s", series))
			continue
		}
		fmt.Println(result)
	}
	fmt.Println(string(store.Export()))
	return nil
}
