package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"dm-service/database"
	"dm-service/event"
	"dm-service/model"
)

var (
	ApiChannel = make(chan event.EventChannelData)
)

type userEventData struct {
	Id uint `json:"id"`
}

// Api consumes cross-service events from the "api" queue.
func Api() {
	for msg := range ApiChannel {
		switch msg.Action {
		case "user_banned":
			data := userEventData{}
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				log.Printf("malformed user_banned event: %s", err)
				continue
			}

			// Revoke the session and force the account offline
			database.Redis[0].Del(context.Background(), fmt.Sprint(data.Id))
			database.Postgres.
				Model(&model.User{}).
				Where("id = ?", data.Id).
				Update("status", model.StatusOffline)

		default:
			log.Printf("unhandled api event: %s", msg.Action)
		}
	}
}
