package firestore

import (
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"context"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
	"net"
	"sort"
	"strings"
	"sync"
	"testing"
)

// dummyServer serves the part of the Firestore API that Provider calls and keeps documents in memory.
// Received commits are recorded so a test can check what was sent.
type dummyServer struct {
	firestorepb.UnimplementedFirestoreServer

	mutex     sync.Mutex
	documents map[string]*firestorepb.Document
	commits   []*firestorepb.CommitRequest
}

var _ firestorepb.FirestoreServer = (*dummyServer)(nil)

func runDummyServer(t *testing.T) (*dummyServer, string) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %s.", err.Error())
	}

	server := &dummyServer{
		documents: map[string]*firestorepb.Document{},
	}
	grpcServer := grpc.NewServer()
	firestorepb.RegisterFirestoreServer(grpcServer, server)
	go func() {
		_ = grpcServer.Serve(listener)
	}()
	t.Cleanup(grpcServer.Stop)

	return server, listener.Addr().String()
}

func (s *dummyServer) lastWrite() *firestorepb.Write {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if len(s.commits) == 0 {
		return nil
	}
	writes := s.commits[len(s.commits)-1].Writes
	if len(writes) == 0 {
		return nil
	}
	return writes[len(writes)-1]
}

func (s *dummyServer) Commit(_ context.Context, req *firestorepb.CommitRequest) (*firestorepb.CommitResponse, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.commits = append(s.commits, proto.Clone(req).(*firestorepb.CommitRequest))

	now := timestamppb.Now()
	results := make([]*firestorepb.WriteResult, 0, len(req.Writes))
	for _, write := range req.Writes {
		switch op := write.Operation.(type) {
		case *firestorepb.Write_Delete:
			delete(s.documents, op.Delete)

		case *firestorepb.Write_Update:
			stored, found := s.documents[op.Update.Name]
			if cond, ok := write.GetCurrentDocument().GetConditionType().(*firestorepb.Precondition_Exists); ok {
				if cond.Exists && !found {
					return nil, status.Errorf(codes.NotFound, "no entity to update: %s", op.Update.Name)
				}
				if !cond.Exists && found {
					return nil, status.Errorf(codes.AlreadyExists, "entity already exists: %s", op.Update.Name)
				}
			}

			doc := proto.Clone(op.Update).(*firestorepb.Document)
			if mask := write.GetUpdateMask(); mask != nil && found {
				merged := proto.Clone(stored).(*firestorepb.Document)
				if merged.Fields == nil {
					merged.Fields = map[string]*firestorepb.Value{}
				}
				for _, path := range mask.FieldPaths {
					name := fieldName(path)
					if value, ok := doc.Fields[name]; ok {
						merged.Fields[name] = value
					} else {
						delete(merged.Fields, name)
					}
				}
				doc = merged
			}

			doc.CreateTime = now
			if found {
				doc.CreateTime = stored.CreateTime
			}
			doc.UpdateTime = now
			s.documents[doc.Name] = doc

		default:
			return nil, status.Errorf(codes.Unimplemented, "unsupported write: %T", op)
		}

		results = append(results, &firestorepb.WriteResult{UpdateTime: now})
	}

	return &firestorepb.CommitResponse{
		WriteResults: results,
		CommitTime:   now,
	}, nil
}

func (s *dummyServer) BatchGetDocuments(req *firestorepb.BatchGetDocumentsRequest, stream firestorepb.Firestore_BatchGetDocumentsServer) error {
	s.mutex.Lock()
	now := timestamppb.Now()
	responses := make([]*firestorepb.BatchGetDocumentsResponse, 0, len(req.Documents))
	for _, name := range req.Documents {
		res := &firestorepb.BatchGetDocumentsResponse{ReadTime: now}
		if doc, ok := s.documents[name]; ok {
			res.Result = &firestorepb.BatchGetDocumentsResponse_Found{Found: proto.Clone(doc).(*firestorepb.Document)}
		} else {
			res.Result = &firestorepb.BatchGetDocumentsResponse_Missing{Missing: name}
		}
		responses = append(responses, res)
	}
	s.mutex.Unlock()

	for _, res := range responses {
		if err := stream.Send(res); err != nil {
			return err
		}
	}
	return nil
}

// RunQuery supports a single collection with optional projection and limit, ordered by document name.
func (s *dummyServer) RunQuery(req *firestorepb.RunQueryRequest, stream firestorepb.Firestore_RunQueryServer) error {
	query := req.GetStructuredQuery()
	if len(query.GetFrom()) != 1 || query.GetWhere() != nil {
		return status.Error(codes.Unimplemented, "unsupported query")
	}
	prefix := req.Parent + "/" + query.GetFrom()[0].CollectionId + "/"

	s.mutex.Lock()
	names := []string{}
	for name := range s.documents {
		if strings.HasPrefix(name, prefix) && !strings.Contains(strings.TrimPrefix(name, prefix), "/") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if limit := query.GetLimit(); limit != nil && int(limit.GetValue()) < len(names) {
		names = names[:int(limit.GetValue())]
	}

	docs := make([]*firestorepb.Document, 0, len(names))
	for _, name := range names {
		doc := proto.Clone(s.documents[name]).(*firestorepb.Document)
		if selection := query.GetSelect(); selection != nil {
			selected := map[string]*firestorepb.Value{}
			for _, ref := range selection.GetFields() {
				if value, ok := doc.Fields[ref.FieldPath]; ok {
					selected[ref.FieldPath] = value
				}
			}
			doc.Fields = selected
		}
		docs = append(docs, doc)
	}
	s.mutex.Unlock()

	now := timestamppb.Now()
	for _, doc := range docs {
		if err := stream.Send(&firestorepb.RunQueryResponse{Document: doc, ReadTime: now}); err != nil {
			return err
		}
	}
	return nil
}

// fieldName reverts the quoting applied to a field path component such as "`a.b`".
func fieldName(path string) string {
	if len(path) < 2 || !strings.HasPrefix(path, "`") || !strings.HasSuffix(path, "`") {
		return path
	}
	replacer := strings.NewReplacer("\\`", "`", "\\\\", "\\")
	return replacer.Replace(path[1 : len(path)-1])
}
