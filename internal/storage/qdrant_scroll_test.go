package storage

import (
	"context"
	"fmt"
	"net"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

// pointsServer serves Scroll over a fixed set of numeric ids the way Qdrant
// does: the request offset is the first id returned, and the response names
// the first id of the next page.
type pointsServer struct {
	qdrant.UnimplementedPointsServer
	total uint64
}

func (s *pointsServer) Scroll(ctx context.Context, req *qdrant.ScrollPoints) (*qdrant.ScrollResponse, error) {
	start := uint64(1)
	if off := req.GetOffset(); off != nil {
		start = off.GetNum()
	}

	resp := &qdrant.ScrollResponse{}
	id := start
	for ; id <= s.total && uint32(len(resp.Result)) < req.GetLimit(); id++ {
		resp.Result = append(resp.Result, &qdrant.RetrievedPoint{
			Id: qdrant.NewIDNum(id),
			Payload: map[string]*qdrant.Value{
				"chunk_id": qdrant.NewValueString(fmt.Sprintf("doc_%d", id)),
				"document": qdrant.NewValueString("chunk"),
			},
		})
	}
	if id <= s.total {
		resp.NextPageOffset = qdrant.NewIDNum(id)
	}
	return resp, nil
}

func newScrollCollection(t *testing.T, total uint64) *QdrantCollection {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer()
	qdrant.RegisterPointsServer(srv, &pointsServer{total: total})
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:                   "127.0.0.1",
		Port:                   lis.Addr().(*net.TCPAddr).Port,
		SkipCompatibilityCheck: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return &QdrantCollection{client: client, collection: "scroll_test"}
}

func TestQdrantGetAllPagesWithoutRepeats(t *testing.T) {
	for _, total := range []uint64{0, 99, 100, 250} {
		t.Run(fmt.Sprint(total), func(t *testing.T) {
			c := newScrollCollection(t, total)

			all, err := c.GetAll(context.Background())
			require.NoError(t, err)
			require.Len(t, all, int(total))

			seen := make(map[string]bool, len(all))
			for _, r := range all {
				assert.False(t, seen[r.ID], "duplicate record %s", r.ID)
				seen[r.ID] = true
			}
		})
	}
}
