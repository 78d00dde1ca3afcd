// Package rpcapi implements the read-only inspection API of §6:
// GetAddresses, GetAddressStats, HealthCheck, served over a real
// google.golang.org/grpc server (see codec.go for how it avoids requiring
// a protoc-generated .pb.go).
package rpcapi

import (
	"context"

	"google.golang.org/grpc"

	"github.com/kaspa-ng/dnsseeder/internal/addrmgr"
)

const defaultGetAddressesMax = 32

// Service implements the three inspection operations against a Manager.
type Service struct {
	mgr addrmgr.Manager
}

// NewService constructs a Service.
func NewService(mgr addrmgr.Manager) *Service {
	return &Service{mgr: mgr}
}

// GetAddresses returns a sampled list of currently-Good addresses, mixing
// v4 and v6 up to the requested (or default) count.
func (s *Service) GetAddresses(_ context.Context, req *GetAddressesRequest) (*GetAddressesResponse, error) {
	max := req.Max
	if max <= 0 {
		max = defaultGetAddressesMax
	}
	halfV4 := (max + 1) / 2
	halfV6 := max / 2

	v4 := s.mgr.GoodSample(halfV4, addrmgr.FamilyV4, "")
	v6 := s.mgr.GoodSample(halfV6, addrmgr.FamilyV6, "")

	out := make([]string, 0, len(v4)+len(v6))
	for _, a := range v4 {
		out = append(out, a.String())
	}
	for _, a := range v6 {
		out = append(out, a.String())
	}
	return &GetAddressesResponse{Addresses: out}, nil
}

// GetAddressStats returns counts by derived state.
func (s *Service) GetAddressStats(_ context.Context, _ *GetAddressStatsRequest) (*GetAddressStatsResponse, error) {
	st := s.mgr.SnapshotStats()
	return &GetAddressStatsResponse{Good: st.Good, Stale: st.Stale, Bad: st.Bad, New: st.New}, nil
}

// HealthCheck always reports serving; the inspection server would not be
// answering RPCs at all if the process were not up.
func (s *Service) HealthCheck(_ context.Context, _ *HealthCheckRequest) (*HealthCheckResponse, error) {
	return &HealthCheckResponse{Serving: true}, nil
}

// ServiceName is used both in the ServiceDesc registration and by clients
// dialing this service without a .proto-derived stub.
const ServiceName = "kaspaseeder.Inspection"

// ServiceDesc is the hand-written grpc.ServiceDesc standing in for what
// protoc-gen-go-grpc would normally emit. grpc.ServiceDesc is a stable,
// publicly documented part of google.golang.org/grpc's API surface
// designed to be constructed this way.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*interface{})(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetAddresses", Handler: getAddressesHandler},
		{MethodName: "GetAddressStats", Handler: getAddressStatsHandler},
		{MethodName: "HealthCheck", Handler: healthCheckHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rpcapi.proto",
}

func getAddressesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetAddressesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	svc := srv.(*Service)
	if interceptor == nil {
		return svc.GetAddresses(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: svc, FullMethod: "/" + ServiceName + "/GetAddresses"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return svc.GetAddresses(ctx, req.(*GetAddressesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getAddressStatsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetAddressStatsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	svc := srv.(*Service)
	if interceptor == nil {
		return svc.GetAddressStats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: svc, FullMethod: "/" + ServiceName + "/GetAddressStats"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return svc.GetAddressStats(ctx, req.(*GetAddressStatsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func healthCheckHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(HealthCheckRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	svc := srv.(*Service)
	if interceptor == nil {
		return svc.HealthCheck(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: svc, FullMethod: "/" + ServiceName + "/HealthCheck"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return svc.HealthCheck(ctx, req.(*HealthCheckRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Register wires the Service into a *grpc.Server, the same shape as a
// generated RegisterInspectionServer function would produce.
func Register(s *grpc.Server, svc *Service) {
	s.RegisterService(&ServiceDesc, svc)
}
