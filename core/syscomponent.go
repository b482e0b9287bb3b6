package core

import (
	"context"
	"fmt"

	"go.uber.org/dig"
	"go.uber.org/zap"
)

var systemComponents *SystemComponents

type ResultChan chan *RawResult

type Channels struct {
	ResultChan
	// when more channel is needed, add here
}

func NewChannels() *Channels {
	return &Channels{
		ResultChan: make(ResultChan),
	}
}

func (c *Channels) Close() {
	close(c.ResultChan)
}

func (c *Channels) Check() error {
	if c.ResultChan == nil {
		return fmt.Errorf("ResultChan is nil")
	}
	return nil
}

// RunRequest is one backend submission. Programs are opaque compiled pulse
// programs; the backend only needs their count and the acquisition settings.
type RunRequest struct {
	Programs   []RunnableProgram
	Shots      int
	MeasLevel  MeasLevel
	MeasReturn MeasReturn
}

// RunnableProgram is what a backend accepts for execution. Compiled pulse
// schedules and gate-level circuits both satisfy it.
type RunnableProgram interface {
	ProgramName() string
	ProgramQubits() []int
}

// Backend executes batches of programs on hardware or a simulator.
type Backend interface {
	Setup(*Conf) error
	Submit(context.Context, *RunRequest) (*RawResult, error)
	MaxShots() int
	TearDown()
}

type SystemComponents struct {
	*dig.Container
	*Channels
}

func NewSystemComponents(con *dig.Container) *SystemComponents {
	return &SystemComponents{
		con,
		NewChannels(),
	}
}

func GetSystemComponents() *SystemComponents {
	return systemComponents
}

func (s *SystemComponents) Setup(conf *Conf) error {
	zap.L().Debug("Setting up backend")
	err := s.Invoke(
		func(b Backend) error {
			return b.Setup(conf)
		})
	if err != nil {
		return err
	}
	systemComponents = s
	return nil
}

func (s *SystemComponents) TearDown() {
	_ = s.Invoke(
		func(b Backend) {
			b.TearDown()
		})
	s.Channels.Close()
}

func (s *SystemComponents) Submit(ctx context.Context, req *RunRequest) (*RawResult, error) {
	var result *RawResult
	err := s.Invoke(
		func(b Backend) error {
			var ierr error
			result, ierr = b.Submit(ctx, req)
			return ierr
		})
	return result, err
}

func (s *SystemComponents) GetMaxShots() int {
	var max int
	_ = s.Invoke(
		func(b Backend) {
			max = b.MaxShots()
		})
	return max
}
