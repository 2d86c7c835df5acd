package webd

import (
	"encoding/json"
	"log"
	"log/slog"

	"github.com/olahol/melody"
	"github.com/rotblauer/ftmsd/events"
)

type websocketAction string

var websocketActionTransition websocketAction = "transition"
var websocketActionWorkout websocketAction = "workout"

type broadfit struct {
	Action websocketAction `json:"action"`
	Data   any             `json:"data"`
}

// initMelody sets up the websocket handler, broadcasting every session
// state transition and finished workout to all connected clients.
func (s *WebDaemon) initMelody() {
	s.melodyInstance = melody.New()

	s.melodyInstance.HandleConnect(func(sess *melody.Session) {
		log.Println("[websocket] connected", sess.Request.RemoteAddr)
		// Late joiners get the current picture immediately.
		bc := broadfit{Action: websocketActionTransition, Data: map[string]string{
			"state": s.tracker.State().String(),
		}}
		b, _ := json.Marshal(bc)
		_ = sess.Write(b)
	})

	// Right now don't care about incoming messages from clients. Log and drop.
	s.melodyInstance.HandleMessage(func(sess *melody.Session, msg []byte) {
		log.Println("[websocket] message", string(msg))
	})

	s.melodyInstance.HandleDisconnect(func(sess *melody.Session) {
		log.Println("[websocket] disconnected", sess.Request.RemoteAddr)
	})

	s.melodyInstance.HandleError(func(sess *melody.Session, e error) {
		log.Println("[websocket] error", e, sess.Request.RemoteAddr)
	})

	transitions := make(chan events.Transition)
	transitionSub := events.TransitionFeed.Subscribe(transitions)
	workouts := make(chan *events.Workout)
	workoutSub := events.WorkoutFeed.Subscribe(workouts)
	go func() {
		for {
			var bc broadfit
			select {
			case tr := <-transitions:
				bc = broadfit{Action: websocketActionTransition, Data: tr}
			case wo := <-workouts:
				bc = broadfit{Action: websocketActionWorkout, Data: wo}
			case err := <-transitionSub.Err():
				slog.Error("Transition feed subscription failed", "error", err)
				workoutSub.Unsubscribe()
				return
			case err := <-workoutSub.Err():
				slog.Error("Workout feed subscription failed", "error", err)
				transitionSub.Unsubscribe()
				return
			}
			b, err := json.Marshal(bc)
			if err != nil {
				slog.Error("Failed to marshal websocket event", "error", err)
				continue
			}
			if err := s.melodyInstance.Broadcast(b); err != nil {
				slog.Warn("Failed to broadcast websocket event", "error", err)
			}
		}
	}()
}
