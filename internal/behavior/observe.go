package behavior

import (
	"fmt"
	"strings"

	"agentrpg.ai/internal/world"
)

// NearbyRadius is the Manhattan radius used when listing objects.
const NearbyRadius = 3

const notInWorld = "You are not yet in the world."

// Observation renders what agentID can see into prose for a reasoning backend.
func Observation(snap world.Snapshot, agentID, mission string, actionsTaken int) string {
	me, ok := snap.Agent(agentID)
	if !ok {
		return notInWorld
	}

	var b strings.Builder
	fmt.Fprintf(&b, "POSITION: You are at tile (%d, %d)\n", me.X, me.Y)
	if me.CurrentActivity != "" {
		fmt.Fprintf(&b, "STATUS: %s\n", me.CurrentActivity)
	}

	nearby := snap.ObjectsNear(me.X, me.Y, NearbyRadius)
	if len(nearby) == 0 {
		fmt.Fprintf(&b, "\nNEARBY OBJECTS: None within %d tiles\n", NearbyRadius)
	} else {
		b.WriteString("\nNEARBY OBJECTS:\n")
		for _, o := range nearby {
			fmt.Fprintf(&b, "  - %s '%s' at (%d, %d) - %d tiles away - ID: %s\n",
				orDefault(o.Type, "unknown"), orDefault(o.Label, "unlabeled"),
				o.X, o.Y, world.Distance(o.X, o.Y, me.X, me.Y), o.ID)
		}
	}

	if others := snap.Others(agentID); len(others) > 0 {
		b.WriteString("\nOTHER AGENTS:\n")
		for _, a := range others {
			fmt.Fprintf(&b, "  - %s (%s) at (%d, %d)\n", a.Name, a.Role, a.X, a.Y)
		}
	}

	fmt.Fprintf(&b, "\nMAP: %dx%d tiles\n", snap.Map.Width, snap.Map.Height)
	fmt.Fprintf(&b, "REALM: %s\n", orDefault(me.Realm, "/"))
	fmt.Fprintf(&b, "\nYOUR MISSION: %s\n", mission)
	fmt.Fprintf(&b, "ACTIONS TAKEN: %d", actionsTaken)
	return b.String()
}

// nearbySummary is the one-line object list used by single-shot prompts.
func nearbySummary(snap world.Snapshot, me world.Agent, radius int) string {
	objs := snap.ObjectsNear(me.X, me.Y, radius)
	if len(objs) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(objs))
	for _, o := range objs {
		parts = append(parts, fmt.Sprintf("%s '%s' (%s)", orDefault(o.Type, "object"), orDefault(o.Label, "unknown"), o.ID))
	}
	return strings.Join(parts, ", ")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
