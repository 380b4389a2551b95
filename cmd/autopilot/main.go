// Command autopilot pilots a Sea Drive session to a waypoint through the
// REST API. Each step it probes the water ahead, turns towards the target
// or around whatever blocks it, and holds the input for a few ticks. A run
// that does not arrive within --max-steps is reset and retried with the
// detour preference flipped.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/seadrive/game/engine"
	"github.com/wricardo/mcp-training/seadrive/game/service"
)

const sessionFile = ".session"

// blockedFlip is how many blocked steps in a row make the pilot try the
// other side of an obstacle
const blockedFlip = 3

// Outcome summarises one voyage attempt
type Outcome struct {
	Arrived  bool
	Steps    int
	Ticks    int
	Blocked  int
	Distance float64
	Status   *service.VehicleStatus
}

// pilotAPI is the subset of Client a voyage needs
type pilotAPI interface {
	Prober
	Status(ctx context.Context) (*service.VehicleStatus, error)
	Step(ctx context.Context, req service.StepRequest) (*service.StepResult, error)
	Command(ctx context.Context, cmd service.Command) (*service.CommandResult, error)
}

// voyage steps the session until the pilot arrives or maxSteps is spent
func voyage(ctx context.Context, api pilotAPI, pilot *Pilot, maxSteps int, delay time.Duration, log zerolog.Logger) (*Outcome, error) {
	status, err := api.Status(ctx)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Status: status}
	blockedRun := 0
	for out.Steps < maxSteps {
		if pilot.Arrived(status.Position) {
			out.Arrived = true
			break
		}

		req, err := pilot.Plan(ctx, status)
		if err != nil {
			return out, err
		}
		result, err := api.Step(ctx, req)
		if err != nil {
			return out, err
		}
		out.Steps++
		out.Ticks += result.TicksExecuted
		out.Distance += result.Distance
		if result.Status != nil {
			status = result.Status
		}

		log.Debug().
			Int("step", out.Steps).
			Int("steer", req.Steer).
			Int("ticks", result.TicksExecuted).
			Str("heading", status.Heading).
			Float64("x", status.Position.X).
			Float64("y", status.Position.Y).
			Str("stop", result.StopReasonCode).
			Msg("step")

		switch result.StopReasonCode {
		case "terrain_blocked":
			out.Blocked++
			blockedRun++
			if blockedRun >= blockedFlip {
				pilot.Bias = -pilot.Bias
				blockedRun = 0
				log.Info().Int("bias", pilot.Bias).Msg("Repeatedly blocked, trying the other side")
			}
			back, err := api.Command(ctx, service.Command{Type: service.CommandStepBack, Steps: 3})
			if err != nil {
				return out, err
			}
			if back.Status != nil {
				status = back.Status
			}
		case "disabled":
			if _, err := api.Command(ctx, service.Command{Type: service.CommandEnable}); err != nil {
				return out, err
			}
		case "out_of_fuel":
			log.Warn().Str("propulsion", string(status.Propulsion)).Msg("Out of fuel")
			blockedRun = 0
		default:
			blockedRun = 0
		}

		if delay > 0 {
			select {
			case <-ctx.Done():
				return out, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	if !out.Arrived && pilot.Arrived(status.Position) {
		out.Arrived = true
	}
	out.Status = status
	return out, nil
}

func main() {
	cmd := &cli.Command{
		Name:  "autopilot",
		Usage: "Pilot a Sea Drive session to a waypoint",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Server URL"},
			&cli.StringFlag{Name: "config", Usage: "Scenario to create the session from"},
			&cli.StringFlag{Name: "continue", Usage: "Resume an existing session by ID"},
			&cli.FloatFlag{Name: "x", Value: 320, Usage: "Target X"},
			&cli.FloatFlag{Name: "y", Value: 100, Usage: "Target Y"},
			&cli.IntFlag{Name: "max-steps", Value: 400, Usage: "Maximum steps per attempt"},
			&cli.IntFlag{Name: "max-attempts", Value: 4, Usage: "Maximum attempts before giving up"},
			&cli.DurationFlag{Name: "delay", Usage: "Pause between steps, useful with a WebSocket viewer"},
			&cli.BoolFlag{Name: "v", Usage: "Verbose output"},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "autopilot: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	level := zerolog.InfoLevel
	if cmd.Bool("v") {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	client := NewClient(cmd.String("url"))
	log.Info().Str("url", cmd.String("url")).Msg("Connecting to server")

	if err := attachSession(ctx, client, cmd.String("continue"), cmd.String("config"), log); err != nil {
		return err
	}

	target := engine.Position{X: cmd.Float("x"), Y: cmd.Float("y")}
	pilot := NewPilot(target, client)

	maxAttempts := int(cmd.Int("max-attempts"))
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, err := client.Reset(ctx)
		if err != nil {
			return err
		}
		log.Info().
			Int("attempt", attempt).
			Float64("x", status.Position.X).
			Float64("y", status.Position.Y).
			Float64("target_x", target.X).
			Float64("target_y", target.Y).
			Msg("Setting out")

		out, err := voyage(ctx, client, pilot, int(cmd.Int("max-steps")), cmd.Duration("delay"), log)
		if err != nil {
			return err
		}

		log.Info().
			Int("attempt", attempt).
			Bool("arrived", out.Arrived).
			Int("steps", out.Steps).
			Int("ticks", out.Ticks).
			Int("blocked", out.Blocked).
			Float64("distance", out.Distance).
			Float64("fuel", out.Status.Fuel).
			Msg("Attempt finished")

		if out.Arrived {
			log.Info().Str("session", client.SessionID()).Msg("Arrived at waypoint")
			return nil
		}
		pilot.Bias = -pilot.Bias
	}

	return fmt.Errorf("did not reach (%.0f, %.0f) after %d attempts (session %s)", target.X, target.Y, maxAttempts, client.SessionID())
}

// attachSession resumes an explicit or saved session, creating a new one
// when neither works
func attachSession(ctx context.Context, client *Client, explicit, configID string, log zerolog.Logger) error {
	saved := explicit
	if saved == "" {
		if data, err := os.ReadFile(sessionFile); err == nil {
			saved = string(bytes.TrimSpace(data))
		}
	}

	if saved != "" {
		client.Attach(saved)
		_, err := client.Status(ctx)
		if err == nil {
			log.Info().Str("session", saved).Msg("Resumed session")
			return nil
		}
		log.Warn().Err(err).Str("session", saved).Msg("Failed to resume session, creating a new one")
	}

	info, err := client.CreateSession(ctx, configID)
	if err != nil {
		return err
	}
	log.Info().Str("session", info.ID).Str("config", info.ConfigName).Msg("Session created")

	if err := os.WriteFile(sessionFile, []byte(info.ID), 0644); err != nil {
		log.Warn().Err(err).Msg("Failed to save session ID")
	}
	return nil
}
