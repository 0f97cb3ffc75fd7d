package model

type Guest struct {
	ID            string `json:"id" bson:"_id,omitempty"`
	ReservationID string `json:"reservation_id" bson:"reservation_id"`
	Position      int    `json:"-" bson:"position"`
	Name          string `json:"name" bson:"name"`
	Email         string `json:"email" bson:"email"`
}

type GuestInput struct {
	Name  string `json:"name" validate:"required,max=120"`
	Email string `json:"email" validate:"required,email"`
}
