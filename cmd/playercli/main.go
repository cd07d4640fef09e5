// Package main provides the playback client CLI.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/versesync/internal/api/connect"
	"github.com/osa030/versesync/internal/api/rpc"
	"github.com/osa030/versesync/internal/domain/recitation"
)

var (
	app    = kingpin.New("versesync-playercli", "versesync playback client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Control token").Envar("VERSESYNC_CONTROL_TOKEN").String()

	// set-collection command
	setCollectionCmd = app.Command("set-collection", "Select the collection to play")
	setCollectionID  = setCollectionCmd.Arg("collection", "Collection number").Required().Int()

	// play-unit command
	playUnitCmd  = app.Command("play-unit", "Play a single unit")
	playUnitUnit = playUnitCmd.Arg("unit", "Unit number").Required().Int()

	// play-word command
	playWordCmd  = app.Command("play-word", "Play a unit starting at a word")
	playWordUnit = playWordCmd.Arg("unit", "Unit number").Required().Int()
	playWordWord = playWordCmd.Arg("word", "Word number").Required().Int()

	// play command
	playCmd  = app.Command("play", "Play the collection continuously")
	playFrom = playCmd.Arg("unit", "Unit to start from (default: beginning)").Int()

	stopCmd   = app.Command("stop", "Stop playback")
	pauseCmd  = app.Command("pause", "Pause playback")
	resumeCmd = app.Command("resume", "Resume playback")

	// seek command
	seekCmd      = app.Command("seek", "Move the playback position")
	seekPosition = seekCmd.Arg("seconds", "Position in seconds").Required().Float64()

	stateCmd = app.Command("state", "Show the playback state")

	// unit command
	unitCmd        = app.Command("unit", "Show the words and timing of a unit")
	unitCollection = unitCmd.Arg("collection", "Collection number").Required().Int()
	unitUnit       = unitCmd.Arg("unit", "Unit number").Required().Int()

	watchCmd = app.Command("watch", "Watch playback notifications")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := rpc.NewPlaybackServiceClient(http.DefaultClient, *server)
	ctx := context.Background()

	switch command {
	case setCollectionCmd.FullCommand():
		setCollection(ctx, client, *setCollectionID)
	case playUnitCmd.FullCommand():
		printResult(client.PlayUnit(ctx, request(&rpc.PlayUnitRequest{Unit: *playUnitUnit})))
	case playWordCmd.FullCommand():
		printResult(client.PlayFromWord(ctx, request(&rpc.PlayFromWordRequest{Unit: *playWordUnit, Word: *playWordWord})))
	case playCmd.FullCommand():
		printResult(client.PlayContinuous(ctx, request(&rpc.PlayContinuousRequest{Unit: *playFrom})))
	case stopCmd.FullCommand():
		printResult(client.Stop(ctx, request(&rpc.StopRequest{})))
	case pauseCmd.FullCommand():
		printResult(client.Pause(ctx, request(&rpc.PauseRequest{})))
	case resumeCmd.FullCommand():
		printResult(client.Resume(ctx, request(&rpc.ResumeRequest{})))
	case seekCmd.FullCommand():
		printResult(client.Seek(ctx, request(&rpc.SeekRequest{PositionSec: *seekPosition})))
	case stateCmd.FullCommand():
		showState(ctx, client)
	case unitCmd.FullCommand():
		showUnit(ctx, client, *unitCollection, *unitUnit)
	case watchCmd.FullCommand():
		watch(ctx, client)
	}
}

// request wraps msg and attaches the control token when one is set.
func request[T any](msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	if *token != "" {
		req.Header().Set(apiconnect.ControlTokenHeader, *token)
	}
	return req
}

func fail(err error) {
	fmt.Printf("Error: %v\n", err)
	os.Exit(1)
}

func setCollection(ctx context.Context, client *rpc.PlaybackServiceClient, collection int) {
	resp, err := client.SetCollection(ctx, request(&rpc.SetCollectionRequest{Collection: collection}))
	if err != nil {
		fail(err)
	}

	c := resp.Msg.Collection
	fmt.Printf("Collection %d selected (%d units)\n", c.ID, len(c.Units))
	if c.AudioURL != "" {
		fmt.Printf("  Audio: %s\n", c.AudioURL)
	}
	if c.DurationSec > 0 {
		fmt.Printf("  Duration: %s\n", recitation.FormatClock(c.DurationSec))
	}
}

func printResult(resp *connect.Response[rpc.PlaybackResult], err error) {
	if err != nil {
		fail(err)
	}
	if !resp.Msg.OK {
		fmt.Printf("Refused [%s]\n", resp.Msg.Reason)
		os.Exit(2)
	}
	fmt.Println("OK")
	printState(resp.Msg.State)
}

func showState(ctx context.Context, client *rpc.PlaybackServiceClient) {
	resp, err := client.GetState(ctx, request(&rpc.GetStateRequest{}))
	if err != nil {
		fail(err)
	}
	fmt.Printf("Session: %s\n", resp.Msg.SessionID)
	printState(resp.Msg.State)
}

func showUnit(ctx context.Context, client *rpc.PlaybackServiceClient, collection, unit int) {
	resp, err := client.GetUnit(ctx, request(&rpc.GetUnitRequest{Collection: collection, Unit: unit}))
	if err != nil {
		fail(err)
	}

	u := resp.Msg
	fmt.Printf("Unit %d:%d\n", u.Collection, u.Unit)
	if u.Timed {
		fmt.Printf("  Time: %s - %s (%s)\n",
			recitation.FormatClock(float64(u.StartMs)/1000),
			recitation.FormatClock(float64(u.EndMs)/1000),
			u.Length)
	} else {
		fmt.Println("  Time: untimed")
	}
	if u.Text != "" {
		fmt.Printf("  Text: %s\n", u.Text)
	}

	segments := make(map[int]rpc.Segment, len(u.Segments))
	for _, s := range u.Segments {
		segments[s.Word] = s
	}
	for _, w := range u.Words {
		line := fmt.Sprintf("  %3d  %s", w.Index, w.Glyph)
		if s, ok := segments[w.Index]; ok {
			line += fmt.Sprintf("  [%d-%d ms]", s.StartMs, s.EndMs)
		}
		fmt.Println(line)
	}
}

func watch(ctx context.Context, client *rpc.PlaybackServiceClient) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := client.Watch(ctx, request(&rpc.WatchRequest{}))
	if err != nil {
		fail(err)
	}
	defer stream.Close()

	fmt.Println("Watching playback. Press Ctrl+C to exit.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nStopping...")
		cancel()
	}()

	for stream.Receive() {
		n := stream.Msg()
		fmt.Printf("[%d] %s ", n.SequenceNo, strings.ToUpper(n.Type))
		printState(n.State)
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		fmt.Printf("Stream error: %v\n", err)
	}
}

func printState(s *rpc.PlaybackState) {
	if s == nil {
		fmt.Println()
		return
	}

	status := "stopped"
	if s.IsPlaying {
		status = "playing"
	}
	target := "-"
	if s.Target != nil {
		target = fmt.Sprintf("%d:%d", s.Target.Collection, s.Target.Unit)
		if s.ActiveWord > 0 {
			target += fmt.Sprintf(" word %d", s.ActiveWord)
		}
	}

	duration := "--:--"
	if s.DurationSec > 0 {
		duration = recitation.FormatClock(s.DurationSec)
	}
	fmt.Printf("collection=%d mode=%s %s %s/%s target=%s\n",
		s.Collection, s.Mode, status, recitation.FormatClock(s.PositionSec), duration, target)
}
