package main

import (
	"context"
	"encoding/json"
	"log/slog"

	"vtransform/internal/ipc"
)

// Query types answered without a round trip through the session.
const (
	ipcGetState   = "get_state"
	ipcGetPresets = "get_presets"
	ipcClassify   = "classify"
)

// ipcServe runs the control socket until ctx is canceled.
func ipcServe(ctx context.Context, socketPath string, session sessionClient, logger *slog.Logger) error {
	return ipc.Serve(ctx, socketPath, ipcHandler(session, logger), logger)
}

// ipcHandler answers one envelope from the control socket. Host events are
// decoded with UnmarshalEvent and submitted to the daemon loop.
func ipcHandler(session sessionClient, logger *slog.Logger) ipc.Handler {
	return func(ctx context.Context, env ipc.Envelope) ipc.Response {
		switch env.Type {
		case ipcGetState:
			snap, err := session.Snapshot(ctx)
			if err != nil {
				return ipc.Errorf("%v", err)
			}
			return ipc.OK(snap)

		case ipcGetPresets:
			return ipc.OK(presetList())

		case ipcClassify:
			var req classifyRequest
			if len(env.Data) > 0 {
				if err := json.Unmarshal(env.Data, &req); err != nil {
					return ipc.Errorf("decode classify: %v", err)
				}
			}
			label, err := classifyTable(req)
			if err != nil {
				return ipc.Errorf("%v", err)
			}
			return ipc.OK(classifyResponse{Preset: label})
		}

		ev, err := UnmarshalEvent(env.Type, env.Data)
		if err != nil {
			logger.Debug("IPC rejected envelope", "type", env.Type, "error", err)
			return ipc.Errorf("%v", err)
		}
		out, err := session.Submit(ctx, ev)
		if err != nil {
			return ipc.Errorf("%v", err)
		}
		return ipc.OK(out)
	}
}
