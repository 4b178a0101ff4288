// Package entryrpc defines the gRPC protocol the collector uses to push
// benchmark entries to the server.
//
// Messages are plain Go structs carried by a JSON codec registered under the
// content-subtype "json", so no generated protobuf code is needed. Clients
// created with NewEntryServiceClient select that codec on every call; servers
// pick it up automatically from the request content-type.
//
//	service benchboard.v1.EntryService {
//	  rpc Append(AppendRequest) returns (AppendResponse);
//	}
package entryrpc
