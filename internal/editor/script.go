package editor

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// A script is a YAML list of steps. Each step is either a bare command name
// or a single-key mapping from the name to its arguments:
//
//   - preset: {name: rondo4v2, confirm: true}
//   - down: {x: 0.5, y: 0.5, resolve: true}
//   - move: {x: 0.6, y: 0.5}
//   - up: {x: 0.6, y: 0.5}
//   - duplicate
var scriptCommands = map[string]func(*yaml.Node) (Command, error){
	"down":       decodeStep[PointerDown],
	"move":       decodeStep[PointerMove],
	"up":         decodeStep[PointerUp],
	"delete":     decodeStep[Delete],
	"duplicate":  decodeStep[Duplicate],
	"front":      decodeStep[BringToFront],
	"back":       decodeStep[SendToBack],
	"escape":     decodeStep[Escape],
	"add":        decodeStep[AddObject],
	"preset":     decodeStep[ApplyPreset],
	"background": decodeStep[SetBackground],
	"label":      decodeStep[SetLabel],
	"style":      decodeStep[SetStyle],
	"undo":       decodeStep[Undo],
	"redo":       decodeStep[Redo],
}

func decodeStep[T Command](args *yaml.Node) (Command, error) {
	var cmd T
	if args != nil {
		if err := args.Decode(&cmd); err != nil {
			return nil, err
		}
	}
	return cmd, nil
}

// ScriptCommands lists the step names a script may use.
func ScriptCommands() []string {
	names := make([]string, 0, len(scriptCommands))
	for name := range scriptCommands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseScript decodes a command script.
func ParseScript(data []byte) ([]Command, error) {
	var steps []yaml.Node
	if err := yaml.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}

	cmds := make([]Command, 0, len(steps))
	for i := range steps {
		step := &steps[i]
		var name string
		var args *yaml.Node
		switch {
		case step.Kind == yaml.ScalarNode:
			name = step.Value
		case step.Kind == yaml.MappingNode && len(step.Content) == 2:
			name = step.Content[0].Value
			args = step.Content[1]
			if args.Tag == "!!null" {
				args = nil
			}
		default:
			return nil, fmt.Errorf("script step %d (line %d): want a name or a single-key mapping", i+1, step.Line)
		}

		decode, ok := scriptCommands[name]
		if !ok {
			return nil, fmt.Errorf("script step %d (line %d): unknown command %q", i+1, step.Line, name)
		}
		cmd, err := decode(args)
		if err != nil {
			return nil, fmt.Errorf("script step %d (%s): %w", i+1, name, err)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

// Run dispatches cmds in order and collects their results. It stops at the
// first session error; refused or invalid commands are reported in their
// Result and do not stop the run.
func (s *Session) Run(cmds []Command) ([]Result, error) {
	results := make([]Result, 0, len(cmds))
	for _, cmd := range cmds {
		res, err := s.Dispatch(cmd)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
