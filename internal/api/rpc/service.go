package rpc

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// PlaybackServiceName is the fully-qualified name of the PlaybackService service.
const PlaybackServiceName = "versesync.v1.PlaybackService"

// Procedure paths of the PlaybackService.
const (
	PlaybackServiceSetCollectionProcedure  = "/versesync.v1.PlaybackService/SetCollection"
	PlaybackServicePlayUnitProcedure       = "/versesync.v1.PlaybackService/PlayUnit"
	PlaybackServicePlayFromWordProcedure   = "/versesync.v1.PlaybackService/PlayFromWord"
	PlaybackServicePlayContinuousProcedure = "/versesync.v1.PlaybackService/PlayContinuous"
	PlaybackServiceStopProcedure           = "/versesync.v1.PlaybackService/Stop"
	PlaybackServicePauseProcedure          = "/versesync.v1.PlaybackService/Pause"
	PlaybackServiceResumeProcedure         = "/versesync.v1.PlaybackService/Resume"
	PlaybackServiceSeekProcedure           = "/versesync.v1.PlaybackService/Seek"
	PlaybackServiceGetStateProcedure       = "/versesync.v1.PlaybackService/GetState"
	PlaybackServiceGetUnitProcedure        = "/versesync.v1.PlaybackService/GetUnit"
	PlaybackServiceWatchProcedure          = "/versesync.v1.PlaybackService/Watch"
)

// IsMutating reports whether a procedure changes playback state.
func IsMutating(procedure string) bool {
	switch procedure {
	case PlaybackServiceGetStateProcedure, PlaybackServiceGetUnitProcedure, PlaybackServiceWatchProcedure:
		return false
	default:
		return strings.HasPrefix(procedure, "/"+PlaybackServiceName+"/")
	}
}

// PlaybackServiceHandler is implemented by the PlaybackService server.
type PlaybackServiceHandler interface {
	SetCollection(context.Context, *connect.Request[SetCollectionRequest]) (*connect.Response[SetCollectionResponse], error)
	PlayUnit(context.Context, *connect.Request[PlayUnitRequest]) (*connect.Response[PlaybackResult], error)
	PlayFromWord(context.Context, *connect.Request[PlayFromWordRequest]) (*connect.Response[PlaybackResult], error)
	PlayContinuous(context.Context, *connect.Request[PlayContinuousRequest]) (*connect.Response[PlaybackResult], error)
	Stop(context.Context, *connect.Request[StopRequest]) (*connect.Response[PlaybackResult], error)
	Pause(context.Context, *connect.Request[PauseRequest]) (*connect.Response[PlaybackResult], error)
	Resume(context.Context, *connect.Request[ResumeRequest]) (*connect.Response[PlaybackResult], error)
	Seek(context.Context, *connect.Request[SeekRequest]) (*connect.Response[PlaybackResult], error)
	GetState(context.Context, *connect.Request[GetStateRequest]) (*connect.Response[GetStateResponse], error)
	GetUnit(context.Context, *connect.Request[GetUnitRequest]) (*connect.Response[GetUnitResponse], error)
	Watch(context.Context, *connect.Request[WatchRequest], *connect.ServerStream[Notification]) error
}

// NewPlaybackServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself.
func NewPlaybackServiceHandler(svc PlaybackServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(PlaybackServiceSetCollectionProcedure, connect.NewUnaryHandler(PlaybackServiceSetCollectionProcedure, svc.SetCollection, opts...))
	mux.Handle(PlaybackServicePlayUnitProcedure, connect.NewUnaryHandler(PlaybackServicePlayUnitProcedure, svc.PlayUnit, opts...))
	mux.Handle(PlaybackServicePlayFromWordProcedure, connect.NewUnaryHandler(PlaybackServicePlayFromWordProcedure, svc.PlayFromWord, opts...))
	mux.Handle(PlaybackServicePlayContinuousProcedure, connect.NewUnaryHandler(PlaybackServicePlayContinuousProcedure, svc.PlayContinuous, opts...))
	mux.Handle(PlaybackServiceStopProcedure, connect.NewUnaryHandler(PlaybackServiceStopProcedure, svc.Stop, opts...))
	mux.Handle(PlaybackServicePauseProcedure, connect.NewUnaryHandler(PlaybackServicePauseProcedure, svc.Pause, opts...))
	mux.Handle(PlaybackServiceResumeProcedure, connect.NewUnaryHandler(PlaybackServiceResumeProcedure, svc.Resume, opts...))
	mux.Handle(PlaybackServiceSeekProcedure, connect.NewUnaryHandler(PlaybackServiceSeekProcedure, svc.Seek, opts...))
	mux.Handle(PlaybackServiceGetStateProcedure, connect.NewUnaryHandler(PlaybackServiceGetStateProcedure, svc.GetState, opts...))
	mux.Handle(PlaybackServiceGetUnitProcedure, connect.NewUnaryHandler(PlaybackServiceGetUnitProcedure, svc.GetUnit, opts...))
	mux.Handle(PlaybackServiceWatchProcedure, connect.NewServerStreamHandler(PlaybackServiceWatchProcedure, svc.Watch, opts...))

	return "/" + PlaybackServiceName + "/", mux
}

// PlaybackServiceClient is a client for the PlaybackService.
type PlaybackServiceClient struct {
	setCollection  *connect.Client[SetCollectionRequest, SetCollectionResponse]
	playUnit       *connect.Client[PlayUnitRequest, PlaybackResult]
	playFromWord   *connect.Client[PlayFromWordRequest, PlaybackResult]
	playContinuous *connect.Client[PlayContinuousRequest, PlaybackResult]
	stop           *connect.Client[StopRequest, PlaybackResult]
	pause          *connect.Client[PauseRequest, PlaybackResult]
	resume         *connect.Client[ResumeRequest, PlaybackResult]
	seek           *connect.Client[SeekRequest, PlaybackResult]
	getState       *connect.Client[GetStateRequest, GetStateResponse]
	getUnit        *connect.Client[GetUnitRequest, GetUnitResponse]
	watch          *connect.Client[WatchRequest, Notification]
}

// NewPlaybackServiceClient constructs a client for the PlaybackService at baseURL.
func NewPlaybackServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *PlaybackServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &PlaybackServiceClient{
		setCollection:  connect.NewClient[SetCollectionRequest, SetCollectionResponse](httpClient, baseURL+PlaybackServiceSetCollectionProcedure, opts...),
		playUnit:       connect.NewClient[PlayUnitRequest, PlaybackResult](httpClient, baseURL+PlaybackServicePlayUnitProcedure, opts...),
		playFromWord:   connect.NewClient[PlayFromWordRequest, PlaybackResult](httpClient, baseURL+PlaybackServicePlayFromWordProcedure, opts...),
		playContinuous: connect.NewClient[PlayContinuousRequest, PlaybackResult](httpClient, baseURL+PlaybackServicePlayContinuousProcedure, opts...),
		stop:           connect.NewClient[StopRequest, PlaybackResult](httpClient, baseURL+PlaybackServiceStopProcedure, opts...),
		pause:          connect.NewClient[PauseRequest, PlaybackResult](httpClient, baseURL+PlaybackServicePauseProcedure, opts...),
		resume:         connect.NewClient[ResumeRequest, PlaybackResult](httpClient, baseURL+PlaybackServiceResumeProcedure, opts...),
		seek:           connect.NewClient[SeekRequest, PlaybackResult](httpClient, baseURL+PlaybackServiceSeekProcedure, opts...),
		getState:       connect.NewClient[GetStateRequest, GetStateResponse](httpClient, baseURL+PlaybackServiceGetStateProcedure, opts...),
		getUnit:        connect.NewClient[GetUnitRequest, GetUnitResponse](httpClient, baseURL+PlaybackServiceGetUnitProcedure, opts...),
		watch:          connect.NewClient[WatchRequest, Notification](httpClient, baseURL+PlaybackServiceWatchProcedure, opts...),
	}
}

// SetCollection calls versesync.v1.PlaybackService.SetCollection.
func (c *PlaybackServiceClient) SetCollection(ctx context.Context, req *connect.Request[SetCollectionRequest]) (*connect.Response[SetCollectionResponse], error) {
	return c.setCollection.CallUnary(ctx, req)
}

// PlayUnit calls versesync.v1.PlaybackService.PlayUnit.
func (c *PlaybackServiceClient) PlayUnit(ctx context.Context, req *connect.Request[PlayUnitRequest]) (*connect.Response[PlaybackResult], error) {
	return c.playUnit.CallUnary(ctx, req)
}

// PlayFromWord calls versesync.v1.PlaybackService.PlayFromWord.
func (c *PlaybackServiceClient) PlayFromWord(ctx context.Context, req *connect.Request[PlayFromWordRequest]) (*connect.Response[PlaybackResult], error) {
	return c.playFromWord.CallUnary(ctx, req)
}

// PlayContinuous calls versesync.v1.PlaybackService.PlayContinuous.
func (c *PlaybackServiceClient) PlayContinuous(ctx context.Context, req *connect.Request[PlayContinuousRequest]) (*connect.Response[PlaybackResult], error) {
	return c.playContinuous.CallUnary(ctx, req)
}

// Stop calls versesync.v1.PlaybackService.Stop.
func (c *PlaybackServiceClient) Stop(ctx context.Context, req *connect.Request[StopRequest]) (*connect.Response[PlaybackResult], error) {
	return c.stop.CallUnary(ctx, req)
}

// Pause calls versesync.v1.PlaybackService.Pause.
func (c *PlaybackServiceClient) Pause(ctx context.Context, req *connect.Request[PauseRequest]) (*connect.Response[PlaybackResult], error) {
	return c.pause.CallUnary(ctx, req)
}

// Resume calls versesync.v1.PlaybackService.Resume.
func (c *PlaybackServiceClient) Resume(ctx context.Context, req *connect.Request[ResumeRequest]) (*connect.Response[PlaybackResult], error) {
	return c.resume.CallUnary(ctx, req)
}

// Seek calls versesync.v1.PlaybackService.Seek.
func (c *PlaybackServiceClient) Seek(ctx context.Context, req *connect.Request[SeekRequest]) (*connect.Response[PlaybackResult], error) {
	return c.seek.CallUnary(ctx, req)
}

// GetState calls versesync.v1.PlaybackService.GetState.
func (c *PlaybackServiceClient) GetState(ctx context.Context, req *connect.Request[GetStateRequest]) (*connect.Response[GetStateResponse], error) {
	return c.getState.CallUnary(ctx, req)
}

// GetUnit calls versesync.v1.PlaybackService.GetUnit.
func (c *PlaybackServiceClient) GetUnit(ctx context.Context, req *connect.Request[GetUnitRequest]) (*connect.Response[GetUnitResponse], error) {
	return c.getUnit.CallUnary(ctx, req)
}

// Watch calls versesync.v1.PlaybackService.Watch.
func (c *PlaybackServiceClient) Watch(ctx context.Context, req *connect.Request[WatchRequest]) (*connect.ServerStreamForClient[Notification], error) {
	return c.watch.CallServerStream(ctx, req)
}
