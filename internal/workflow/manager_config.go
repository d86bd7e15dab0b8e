package workflow

import "hakimi/internal/queue"

// ConfigureStages registers the concrete stage handlers the workflow will run.
func (m *Manager) ConfigureStages(set StageSet) {
	foreground := &laneState{kind: laneForeground, name: "foreground"}
	background := &laneState{kind: laneBackground, name: "background"}

	if set.Planner != nil {
		foreground.stages = append(foreground.stages, pipelineStage{
			name:             "planner",
			handler:          set.Planner,
			startStatus:      queue.StatusPending,
			processingStatus: queue.StatusPrompting,
			doneStatus:       queue.StatusPrompted,
		})
	}
	if set.Composer != nil {
		foreground.stages = append(foreground.stages, pipelineStage{
			name:             "composer",
			handler:          set.Composer,
			startStatus:      queue.StatusPrompted,
			processingStatus: queue.StatusComposing,
			doneStatus:       queue.StatusComposed,
		})
	}
	// Rendering and publishing run in the background lane so new requests
	// keep flowing while ffmpeg and the uploader work.
	renderDone := queue.StatusRendered
	if set.Publisher == nil {
		renderDone = queue.StatusCompleted
	}
	if set.Renderer != nil {
		background.stages = append(background.stages, pipelineStage{
			name:             "renderer",
			handler:          set.Renderer,
			startStatus:      queue.StatusComposed,
			processingStatus: queue.StatusRendering,
			doneStatus:       renderDone,
		})
	}
	if set.Publisher != nil {
		background.stages = append(background.stages, pipelineStage{
			name:             "publisher",
			handler:          set.Publisher,
			startStatus:      queue.StatusRendered,
			processingStatus: queue.StatusPublishing,
			doneStatus:       queue.StatusCompleted,
		})
	}

	lanes := make(map[laneKind]*laneState)
	order := make([]laneKind, 0, 2)

	if len(foreground.stages) > 0 {
		foreground.finalize()
		lanes[foreground.kind] = foreground
		order = append(order, foreground.kind)
	}
	if len(background.stages) > 0 {
		background.finalize()
		lanes[background.kind] = background
		order = append(order, background.kind)
	}

	for _, lane := range lanes {
		if lane == nil {
			continue
		}
		lane.runReclaimer = len(lane.processingStatuses) > 0
	}

	m.mu.Lock()
	m.lanes = lanes
	m.laneOrder = order
	m.mu.Unlock()
}
