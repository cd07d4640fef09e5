package connect

import (
	"context"
	"sync"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/versesync/internal/api/rpc"
	"github.com/osa030/versesync/internal/app/notification"
	"github.com/osa030/versesync/internal/app/playback"
	"github.com/osa030/versesync/internal/app/session"
)

// PlaybackService implements the PlaybackService RPC.
type PlaybackService struct {
	session *session.Manager
}

// NewPlaybackService creates a new PlaybackService.
func NewPlaybackService(session *session.Manager) *PlaybackService {
	return &PlaybackService{
		session: session,
	}
}

// Ensure PlaybackService implements the interface.
var _ rpc.PlaybackServiceHandler = (*PlaybackService)(nil)

// SetCollection selects the collection to play.
func (s *PlaybackService) SetCollection(
	ctx context.Context,
	req *connect.Request[rpc.SetCollectionRequest],
) (*connect.Response[rpc.SetCollectionResponse], error) {
	c, err := s.session.SetCollection(req.Msg.Collection)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&rpc.SetCollectionResponse{
		Collection: &rpc.Collection{
			ID:          c.ID,
			Units:       c.Units,
			AudioURL:    c.AudioURL,
			DurationSec: c.DurationSec,
		},
		State: toState(s.session.Playback().Snapshot()),
	}), nil
}

// PlayUnit plays a single unit.
func (s *PlaybackService) PlayUnit(
	ctx context.Context,
	req *connect.Request[rpc.PlayUnitRequest],
) (*connect.Response[rpc.PlaybackResult], error) {
	return s.result(s.session.Playback().PlayUnit(ctx, req.Msg.Unit))
}

// PlayFromWord plays a unit from a word.
func (s *PlaybackService) PlayFromWord(
	ctx context.Context,
	req *connect.Request[rpc.PlayFromWordRequest],
) (*connect.Response[rpc.PlaybackResult], error) {
	return s.result(s.session.Playback().PlayFromWord(ctx, req.Msg.Unit, req.Msg.Word))
}

// PlayContinuous plays across units.
func (s *PlaybackService) PlayContinuous(
	ctx context.Context,
	req *connect.Request[rpc.PlayContinuousRequest],
) (*connect.Response[rpc.PlaybackResult], error) {
	if req.Msg.Unit == 0 {
		return s.result(s.session.Playback().PlayContinuous(ctx))
	}
	return s.result(s.session.Playback().PlayContinuousFrom(ctx, req.Msg.Unit))
}

// Stop stops playback and clears the highlight.
func (s *PlaybackService) Stop(
	ctx context.Context,
	req *connect.Request[rpc.StopRequest],
) (*connect.Response[rpc.PlaybackResult], error) {
	s.session.Playback().Stop()
	return s.result(nil)
}

// Pause pauses playback.
func (s *PlaybackService) Pause(
	ctx context.Context,
	req *connect.Request[rpc.PauseRequest],
) (*connect.Response[rpc.PlaybackResult], error) {
	s.session.Playback().Pause()
	return s.result(nil)
}

// Resume resumes playback in the current mode.
func (s *PlaybackService) Resume(
	ctx context.Context,
	req *connect.Request[rpc.ResumeRequest],
) (*connect.Response[rpc.PlaybackResult], error) {
	return s.result(s.session.Playback().Resume(ctx))
}

// Seek moves the playback position.
func (s *PlaybackService) Seek(
	ctx context.Context,
	req *connect.Request[rpc.SeekRequest],
) (*connect.Response[rpc.PlaybackResult], error) {
	return s.result(s.session.Playback().Seek(ctx, req.Msg.PositionSec))
}

// GetState returns the current playback state.
func (s *PlaybackService) GetState(
	ctx context.Context,
	req *connect.Request[rpc.GetStateRequest],
) (*connect.Response[rpc.GetStateResponse], error) {
	return connect.NewResponse(&rpc.GetStateResponse{
		SessionID: s.session.ID(),
		State:     toState(s.session.Playback().Snapshot()),
	}), nil
}

// GetUnit returns the words and timing of a unit.
func (s *PlaybackService) GetUnit(
	ctx context.Context,
	req *connect.Request[rpc.GetUnitRequest],
) (*connect.Response[rpc.GetUnitResponse], error) {
	info, err := s.session.GetUnit(req.Msg.Collection, req.Msg.Unit)
	if err != nil {
		return nil, toConnectError(err)
	}

	resp := &rpc.GetUnitResponse{
		Collection: req.Msg.Collection,
		Unit:       req.Msg.Unit,
		Timed:      info.Timed,
		Length:     info.Length,
		Text:       info.Text,
		Words:      make([]rpc.Word, 0, len(info.Words)),
	}
	if info.Timed {
		resp.StartMs = info.Unit.StartMs
		resp.EndMs = info.Unit.EndMs
		for _, seg := range info.Unit.Segments {
			resp.Segments = append(resp.Segments, rpc.Segment{Word: seg.Word, StartMs: seg.StartMs, EndMs: seg.EndMs})
		}
	}
	for _, w := range info.Words {
		resp.Words = append(resp.Words, rpc.Word{Index: w.Index, Glyph: w.Glyph, Text: w.Text})
	}

	return connect.NewResponse(resp), nil
}

// Watch streams playback updates, starting with the current state.
func (s *PlaybackService) Watch(
	ctx context.Context,
	req *connect.Request[rpc.WatchRequest],
	stream *connect.ServerStream[rpc.Notification],
) error {
	notifManager := s.session.GetNotificationManager()
	adapter := &notificationStreamAdapter{stream: stream}

	// Subscribe before taking the snapshot so no update falls in between.
	// Holding the adapter lock keeps updates behind the initial state.
	adapter.mu.Lock()
	subscriptionID := notifManager.Subscribe(adapter)
	defer notifManager.Unsubscribe(subscriptionID)

	err := stream.Send(&rpc.Notification{
		Type:  rpc.NotificationInitialState,
		State: toState(s.session.Playback().Snapshot()),
	})
	adapter.mu.Unlock()
	if err != nil {
		return err
	}

	// Wait for context cancellation or session end
	select {
	case <-ctx.Done():
	case <-s.session.Done():
	}

	return nil
}

func (s *PlaybackService) result(err error) (*connect.Response[rpc.PlaybackResult], error) {
	state := toState(s.session.Playback().Snapshot())
	if err == nil {
		return connect.NewResponse(&rpc.PlaybackResult{OK: true, State: state}), nil
	}

	reason, ok := reasonFor(err)
	if !ok {
		return nil, toConnectError(err)
	}
	zlog.Debug().Msgf("playback call refused: reason=%s error=%v", reason, err)
	return connect.NewResponse(&rpc.PlaybackResult{OK: false, Reason: reason, State: state}), nil
}

// reasonFor maps non-fatal playback errors to result reasons.
func reasonFor(err error) (string, bool) {
	switch {
	case errors.Is(err, playback.ErrSourceUnavailable):
		return rpc.ReasonSourceUnavailable, true
	case errors.Is(err, playback.ErrUnknownUnit):
		return rpc.ReasonUnknownUnit, true
	case errors.Is(err, playback.ErrUnknownWord):
		return rpc.ReasonUnknownWord, true
	case errors.Is(err, playback.ErrCollectionChanged):
		return rpc.ReasonCollectionChanged, true
	default:
		return "", false
	}
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, playback.ErrInvalidCollection):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, session.ErrUnitNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, session.ErrSessionClosed):
		return connect.NewError(connect.CodeUnavailable, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func toState(st playback.State) *rpc.PlaybackState {
	out := &rpc.PlaybackState{
		Collection:  st.Collection,
		Mode:        st.Mode.String(),
		ActiveWord:  st.ActiveWord,
		IsPlaying:   st.IsPlaying,
		PositionSec: st.PositionSec,
		DurationSec: st.DurationSec,
	}
	if st.Target != nil {
		out.Target = &rpc.Target{Collection: st.Target.Collection, Unit: st.Target.Unit}
	}
	return out
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
// Sends are serialized: a send that outlived its broadcast timeout may
// still be running when the next broadcast starts.
type notificationStreamAdapter struct {
	mu     sync.Mutex
	stream *connect.ServerStream[rpc.Notification]
}

func (a *notificationStreamAdapter) Send(u *notification.Update) error {
	return a.send(&rpc.Notification{
		Type:       u.Type.String(),
		SequenceNo: u.SequenceNo,
		State:      toState(u.State),
	})
}

func (a *notificationStreamAdapter) send(n *rpc.Notification) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stream.Send(n)
}
