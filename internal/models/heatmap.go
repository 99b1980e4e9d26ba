package models

// HeatMapRecord is one scored session of an exercise inside a workout of a
// given time domain.
type HeatMapRecord struct {
	ExerciseName  string   `json:"exercise_name"`
	TimeDomain    string   `json:"time_domain"`
	Percentile    float64  `json:"percentile"`
	EquipmentTags []string `json:"equipment_tags,omitempty"`
}
