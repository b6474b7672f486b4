package scheduler

// TimeOfDayStats aggregates the samples started in one part of the day
type TimeOfDayStats struct {
	Count       int     `json:"count"`
	Efficiency  float64 `json:"efficiency"`
	AvgDuration float64 `json:"avgDuration"`
}

// EfficiencyStats is a sample count with the mean efficiency of those samples
type EfficiencyStats struct {
	Count      int     `json:"count"`
	Efficiency float64 `json:"efficiency"`
}

// TaskTypeStats aggregates the samples of one task type
type TaskTypeStats struct {
	Count      int                           `json:"count"`
	Efficiency float64                       `json:"efficiency"`
	TimeOfDay  map[TimeOfDay]EfficiencyStats `json:"timeOfDay"`
}

// Profile is the productivity of a user derived from recent samples.
// Groups without samples are absent from the maps, absence means no evidence.
type Profile struct {
	UserID       string                       `json:"userId"`
	TotalRecords int                          `json:"totalRecords"`
	TimeOfDay    map[TimeOfDay]TimeOfDayStats `json:"timeOfDay"`
	TaskType     map[string]TaskTypeStats     `json:"taskType"`
	DayOfWeek    map[int]EfficiencyStats      `json:"dayOfWeek"`
}

type accumulator struct {
	count      int
	efficiency float64
	duration   float64
}

func (a *accumulator) add(sample *ProductivitySample) {
	a.count++
	a.efficiency += sample.Efficiency
	a.duration += float64(sample.ActualDuration)
}

func (a *accumulator) meanEfficiency() float64 {
	return a.efficiency / float64(a.count)
}

func (a *accumulator) meanDuration() float64 {
	return a.duration / float64(a.count)
}

// BuildProfile aggregates samples, the result only depends on the samples
func BuildProfile(userID string, samples []ProductivitySample) *Profile {
	profile := Profile{
		UserID:       userID,
		TotalRecords: len(samples),
		TimeOfDay:    map[TimeOfDay]TimeOfDayStats{},
		TaskType:     map[string]TaskTypeStats{},
		DayOfWeek:    map[int]EfficiencyStats{},
	}

	timeOfDay := map[TimeOfDay]*accumulator{}
	taskType := map[string]*accumulator{}
	taskTypeTimeOfDay := map[string]map[TimeOfDay]*accumulator{}
	dayOfWeek := map[int]*accumulator{}

	for i := range samples {
		sample := &samples[i]

		accumulate(taskType, sample.TaskType, sample)

		if taskTypeTimeOfDay[sample.TaskType] == nil {
			taskTypeTimeOfDay[sample.TaskType] = map[TimeOfDay]*accumulator{}
		}

		if isBucket(sample.TimeOfDay) {
			accumulate(timeOfDay, sample.TimeOfDay, sample)
			accumulate(taskTypeTimeOfDay[sample.TaskType], sample.TimeOfDay, sample)
		}

		if sample.DayOfWeek >= 0 && sample.DayOfWeek < 7 {
			accumulate(dayOfWeek, sample.DayOfWeek, sample)
		}
	}

	for bucket, a := range timeOfDay {
		profile.TimeOfDay[bucket] = TimeOfDayStats{
			Count:       a.count,
			Efficiency:  a.meanEfficiency(),
			AvgDuration: a.meanDuration(),
		}
	}

	for name, a := range taskType {
		stats := TaskTypeStats{
			Count:      a.count,
			Efficiency: a.meanEfficiency(),
			TimeOfDay:  map[TimeOfDay]EfficiencyStats{},
		}

		for bucket, b := range taskTypeTimeOfDay[name] {
			stats.TimeOfDay[bucket] = EfficiencyStats{Count: b.count, Efficiency: b.meanEfficiency()}
		}

		profile.TaskType[name] = stats
	}

	for day, a := range dayOfWeek {
		profile.DayOfWeek[day] = EfficiencyStats{Count: a.count, Efficiency: a.meanEfficiency()}
	}

	return &profile
}

func accumulate[K comparable](groups map[K]*accumulator, key K, sample *ProductivitySample) {
	a, ok := groups[key]
	if !ok {
		a = &accumulator{}
		groups[key] = a
	}
	a.add(sample)
}

func isBucket(timeOfDay TimeOfDay) bool {
	for _, bucket := range Buckets {
		if bucket == timeOfDay {
			return true
		}
	}

	return false
}
