package exercise

// Status messages shown to the user, keyed by graph edge.
var builtinMessages = map[Type]map[string]string{
	TypePushups: {
		"ready":     "Get in plank position",
		"start":     "Start going down",
		"bottom":    "Push yourself up",
		"rising":    "Almost there",
		"completed": "Pushup completed! Go down for the next one",
	},
	TypeSitdowns: {
		"ready":     "Stand up straight",
		"start":     "Squat down",
		"bottom":    "Stand back up",
		"rising":    "Almost there",
		"completed": "Sit-down completed! Go down for the next one",
	},
	TypeHandsUp: {
		"ready":     "Raise both hands above your head",
		"raised":    "Now lower your hands",
		"lowering":  "Hands down",
		"completed": "Rep completed! Raise your hands again",
	},
}

var genericMessages = map[string]string{
	"ready":     "Get into the starting position",
	"start":     "Go down",
	"bottom":    "Come back up",
	"rising":    "Almost there",
	"raised":    "Now lower",
	"lowering":  "Lowered",
	"completed": "Rep completed!",
}

// messagesFor layers configured overrides over the built-in set for t.
func messagesFor(t Type, overrides map[string]string) map[string]string {
	out := make(map[string]string, len(genericMessages))
	for k, v := range genericMessages {
		out[k] = v
	}
	for k, v := range builtinMessages[t] {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}
