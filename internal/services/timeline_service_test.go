package services

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/reconcile-timeline/internal/api"
	"github.com/miradorstack/reconcile-timeline/internal/config"
	"github.com/miradorstack/reconcile-timeline/internal/engine"
	"github.com/miradorstack/reconcile-timeline/internal/models"
	"github.com/miradorstack/reconcile-timeline/internal/query"
)

const bufSize = 1 << 20

const clientLog = `[2024-01-01 00:00:00.100000000] [info] physics tick with delta: 16
using input snapshot: Client Input History Insertion Time (epoch ms): 1000
[2024-01-01 00:00:00.116000000] [info] physics tick with delta: 16
using input snapshot: Client Input History Insertion Time (epoch ms): 2000
`

const serverLog = `[2024-01-01 00:00:00.110000000] [info] updated player state Client Input History Insertion Time (epoch ms): 1000
`

func loadSession(t *testing.T) *engine.Session {
	t.Helper()
	p, err := engine.NewPipeline(nil, nil, nil, nil, nil)
	require.NoError(t, err)
	session, err := p.Load(context.Background(), strings.NewReader(clientLog), strings.NewReader(serverLog), engine.LoadOptions{})
	require.NoError(t, err)
	return session
}

func startServer(t *testing.T, svc api.TimelineServer) *api.TimelineClient {
	t.Helper()
	lis := bufconn.Listen(bufSize)
	srv := api.NewServerWithListener(config.ServerConfig{GracefulTimeout: time.Second}, lis, svc)
	go func() { _ = srv.Start() }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return api.NewTimelineClient(conn)
}

func dispatch(t *testing.T, client *api.TimelineClient, req api.DispatchRequest) *structpb.Struct {
	t.Helper()
	in, err := api.ToProtoDispatch(req)
	require.NoError(t, err)
	out, err := client.Dispatch(context.Background(), in)
	require.NoError(t, err)
	return out
}

func TestGetSeriesOverGRPC(t *testing.T) {
	session := loadSession(t)
	client := startServer(t, NewTimelineService(nil, session, nil))

	out, err := client.GetSeries(context.Background())
	require.NoError(t, err)
	series := out.GetFields()["series"].GetListValue().GetValues()
	require.Len(t, series, 2)

	first := series[0].GetStructValue().GetFields()
	assert.Equal(t, models.ClientPhysicsTick.String(), first["kind"].GetStringValue())
	points := first["points"].GetListValue().GetValues()
	require.Len(t, points, 2)
	assert.Equal(t, "confirmed", points[0].GetStructValue().GetFields()["ack"].GetStringValue())
	assert.Equal(t, "missing", points[1].GetStructValue().GetFields()["ack"].GetStringValue())
}

func TestDispatchCausalLinkWithRendererHits(t *testing.T) {
	session := loadSession(t)
	client := startServer(t, NewTimelineService(nil, session, nil))

	tick := session.Store.EventsOf(models.ClientPhysicsTick)[0]
	pos := query.Position{Time: tick.Timestamp, Rank: tick.Rank}
	hits := query.FixedHits{models.ClientPhysicsTick: 0}

	dispatch(t, client, api.DispatchRequest{Input: api.InputModifierDown})
	frame := dispatch(t, client, api.DispatchRequest{Input: api.InputPrimaryDown, Position: pos, HasPosition: true, Hits: hits})

	links := frame.GetFields()["links"].GetListValue().GetValues()
	require.Len(t, links, 1)
	link := links[0].GetStructValue().GetFields()
	assert.Equal(t, models.ServerUpdatedPlayerState.String(), link["toKind"].GetStringValue())

	dispatch(t, client, api.DispatchRequest{Input: api.InputPrimaryUp})
	dispatch(t, client, api.DispatchRequest{Input: api.InputModifierUp})
	frame = dispatch(t, client, api.DispatchRequest{Input: api.InputPointerMoved, Position: pos, HasPosition: true, Hits: hits})
	assert.Len(t, frame.GetFields()["links"].GetListValue().GetValues(), 1)
	assert.Contains(t, frame.GetFields()["transient"].GetStructValue().GetFields()["text"].GetStringValue(), "Acknowledged: yes")

	current, err := client.GetFrame(context.Background())
	require.NoError(t, err)
	assert.False(t, current.GetFields()["chord"].GetStructValue().GetFields()["primary"].GetBoolValue())
}

func TestDispatchRejectsBadInput(t *testing.T) {
	client := startServer(t, NewTimelineService(nil, loadSession(t), nil))

	in, err := structpb.NewStruct(map[string]any{"input": "double_click"})
	require.NoError(t, err)
	_, err = client.Dispatch(context.Background(), in)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	in, err = structpb.NewStruct(map[string]any{"input": "pointer_moved"})
	require.NoError(t, err)
	_, err = client.Dispatch(context.Background(), in)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGetSummaryOverGRPC(t *testing.T) {
	client := startServer(t, NewTimelineService(nil, loadSession(t), nil))

	out, err := client.GetSummary(context.Background())
	require.NoError(t, err)
	fields := out.GetFields()
	assert.Equal(t, 2.0, fields["ticks"].GetNumberValue())
	assert.Equal(t, 1.0, fields["acknowledged"].GetNumberValue())
	assert.Equal(t, 0.5, fields["ackRatio"].GetNumberValue())
}

func TestNoSessionIsFailedPrecondition(t *testing.T) {
	svc := NewTimelineService(nil, nil, nil)
	_, err := svc.GetSeries(context.Background(), nil)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	_, err = svc.Dispatch(context.Background(), &structpb.Struct{})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	_, err = svc.Dispatch(context.Background(), nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
