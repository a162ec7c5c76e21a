package manager

import (
	"solverd/pkg/types"
)

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	resp := types.StatusResponse{
		State:     string(m.state),
		LastError: m.lastErr,
		Skipped:   append([]string(nil), m.skipped...),
	}
	started := m.startTime
	m.mu.RUnlock()

	now := m.now()
	resp.Engine = m.eng.Name()
	resp.Provider = string(m.pool.Provider())
	resp.Projects = m.reg.Len()
	resp.Sessions = m.pool.Len()
	resp.Bindings = m.cat.Len()
	resp.Builds = m.pool.Builds()
	resp.UptimeSeconds = int64(now.Sub(started).Seconds())
	resp.ServerTimeUnix = now.Unix()
	return resp
}
