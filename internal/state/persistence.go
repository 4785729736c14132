package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Yates-Labs/deadwave/internal/story"
	"github.com/Yates-Labs/deadwave/internal/storyerr"
)

// Snapshot captures the full state as a plain value, ready for JSON
// serialization. Datetimes and enums round-trip as their Go zero-value
// encodings (ISO-8601 for time.Time, lowercase string tag for enums),
// matching the wire layout in spec §6.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pools := make(map[story.Timeline][]story.Story, len(s.pools))
	for t, p := range s.pools {
		cp := make([]story.Story, len(p))
		copy(cp, p)
		pools[t] = cp
	}

	active := make(map[story.Timeline]*story.ActiveStory, len(s.active))
	for t, a := range s.active {
		if a == nil {
			active[t] = nil
			continue
		}
		cp := *a
		active[t] = &cp
	}

	activeDef := make(map[story.Timeline]*story.Story, len(s.activeDef))
	for t, def := range s.activeDef {
		if def == nil {
			activeDef[t] = nil
			continue
		}
		cp := *def
		activeDef[t] = &cp
	}

	cooldowns := make(map[story.Timeline]int, len(s.cooldowns))
	for t, c := range s.cooldowns {
		cooldowns[t] = c
	}

	snap := Snapshot{
		SchemaVersion:          s.schemaVersion,
		GlobalBroadcastCounter: s.counter,
		Pools:                  pools,
		Active:                 active,
		ActiveDef:              activeDef,
		Cooldowns:              cooldowns,
		Archive: Archive{
			Completed: append([]CompletedRecord{}, s.archive.Completed...),
			Abandoned: append([]AbandonedRecord{}, s.archive.Abandoned...),
		},
		EscalationLog: append([]story.EscalationRecord{}, s.escalations...),
	}

	s.log.Debug().Int("schema_version", s.schemaVersion).Int("global_broadcast_counter", s.counter).Msg("took state snapshot")

	return snap
}

// Restore replaces the State's contents with a previously taken Snapshot.
// Fails with SchemaIncompatible if the snapshot's version is not one this
// build knows how to read.
func (s *State) Restore(snap Snapshot) error {
	if snap.SchemaVersion != CurrentSchemaVersion {
		err := storyerr.New(storyerr.KindSchemaIncompatible,
			fmt.Sprintf("snapshot schema_version %d, this build reads %d", snap.SchemaVersion, CurrentSchemaVersion))
		s.log.Error().Err(err).Int("snapshot_version", snap.SchemaVersion).Int("build_version", CurrentSchemaVersion).Msg("snapshot restore failed")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.schemaVersion = snap.SchemaVersion
	s.counter = snap.GlobalBroadcastCounter
	s.pools = make(map[story.Timeline][]story.Story, len(snap.Pools))
	s.location = make(map[string]string)

	for t, p := range snap.Pools {
		cp := make([]story.Story, len(p))
		copy(cp, p)
		s.pools[t] = cp
		for _, st := range cp {
			s.location[st.ID] = "pool:" + string(t)
		}
	}

	s.active = make(map[story.Timeline]*story.ActiveStory, len(snap.Active))
	for t, a := range snap.Active {
		if a == nil {
			s.active[t] = nil
			continue
		}
		cp := *a
		s.active[t] = &cp
		s.location[cp.StoryID] = "active:" + string(t)
	}

	s.activeDef = make(map[story.Timeline]*story.Story, len(snap.ActiveDef))
	for t, def := range snap.ActiveDef {
		if def == nil {
			s.activeDef[t] = nil
			continue
		}
		cp := *def
		s.activeDef[t] = &cp
	}

	s.cooldowns = make(map[story.Timeline]int, len(snap.Cooldowns))
	for t, c := range snap.Cooldowns {
		s.cooldowns[t] = c
	}

	s.archive = Archive{
		Completed: append([]CompletedRecord{}, snap.Archive.Completed...),
		Abandoned: append([]AbandonedRecord{}, snap.Archive.Abandoned...),
	}
	for _, c := range s.archive.Completed {
		s.location[c.ID] = "archive"
	}
	for _, a := range s.archive.Abandoned {
		s.location[a.ID] = "archive"
	}

	s.escalations = append([]story.EscalationRecord{}, snap.EscalationLog...)

	s.log.Debug().Int("schema_version", s.schemaVersion).Int("global_broadcast_counter", s.counter).Msg("restored state from snapshot")

	return nil
}

// SaveToFile writes the current Snapshot to path as indented JSON, using
// a temp-file-then-rename so a crash mid-write never corrupts the
// existing snapshot (spec §4.5, §7: "a failed tick leaves persistent
// state unchanged").
func (s *State) SaveToFile(path string) error {
	snap := s.Snapshot()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("snapshot write failed")
		return fmt.Errorf("state: marshaling snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("snapshot write failed")
		return fmt.Errorf("state: creating snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("snapshot write failed")
		return fmt.Errorf("state: creating temp snapshot file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		s.log.Error().Err(err).Str("path", path).Msg("snapshot write failed")
		return fmt.Errorf("state: writing temp snapshot file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		s.log.Error().Err(err).Str("path", path).Msg("snapshot write failed")
		return fmt.Errorf("state: closing temp snapshot file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		s.log.Error().Err(err).Str("path", path).Msg("snapshot write failed")
		return fmt.Errorf("state: renaming temp snapshot file into place: %w", err)
	}

	s.log.Debug().Str("path", path).Msg("snapshot written to disk")
	return nil
}

// LoadFromFile reads a Snapshot from path and restores it into s. A
// missing file is not an error: it means no prior state exists yet, and
// the State is left as-is (typically its zero/New state).
func (s *State) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("snapshot restore failed")
		return fmt.Errorf("state: reading snapshot file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("snapshot restore failed")
		return fmt.Errorf("state: parsing snapshot file: %w", err)
	}

	return s.Restore(snap)
}
