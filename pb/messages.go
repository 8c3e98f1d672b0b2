package pb

import (
	"fmt"

	"github.com/imagvfx/cocowait"
	"google.golang.org/protobuf/types/known/structpb"
)

// SubmitRequest is the request of Manager.Submit.
type SubmitRequest struct {
	// Spec is an encoded jobspec.
	Spec     []byte
	Waitable bool
}

// Proto converts the request to its wire message.
func (r *SubmitRequest) Proto() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"spec":     string(r.Spec),
		"waitable": r.Waitable,
	})
}

// SubmitRequestFromProto converts a wire message to a SubmitRequest.
func SubmitRequestFromProto(s *structpb.Struct) (*SubmitRequest, error) {
	f := s.GetFields()
	spec, ok := f["spec"].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return nil, fmt.Errorf("submit request: spec should be a string")
	}
	r := &SubmitRequest{Spec: []byte(spec.StringValue)}
	if v, ok := f["waitable"]; ok {
		w, ok := v.GetKind().(*structpb.Value_BoolValue)
		if !ok {
			return nil, fmt.Errorf("submit request: waitable should be a bool")
		}
		r.Waitable = w.BoolValue
	}
	return r, nil
}

// JobResultProto converts a job result to its wire message.
func JobResultProto(r *cocowait.JobResult) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"id":      structpb.NewStringValue(string(r.ID)),
			"success": structpb.NewBoolValue(r.Success),
			"errstr":  structpb.NewStringValue(r.Errstr),
		},
	}
}

// JobResultFromProto converts a wire message to a job result.
func JobResultFromProto(s *structpb.Struct) (*cocowait.JobResult, error) {
	f := s.GetFields()
	id := f["id"].GetStringValue()
	if id == "" {
		return nil, fmt.Errorf("job result: id is empty")
	}
	return &cocowait.JobResult{
		ID:      cocowait.JobID(id),
		Success: f["success"].GetBoolValue(),
		Errstr:  f["errstr"].GetStringValue(),
	}, nil
}
