package model

import "strings"

// Activity is a preset quest with a suggested point value.
type Activity struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// Category groups preset activities by area (fitness, study, work, etc.).
type Category struct {
	Name       string     `json:"name"`
	Activities []Activity `json:"activities"`
}

// DefaultCategories are offered when creating a quest.
var DefaultCategories = []Category{
	{Name: "Fitness", Activities: []Activity{{"Workout (30min)", 30}, {"Gym Session", 50}, {"Run 5K", 40}}},
	{Name: "Study", Activities: []Activity{{"Study Session (1hr)", 35}, {"Complete Assignment", 50}, {"Read Chapter", 25}}},
	{Name: "Work", Activities: []Activity{{"Complete Project", 60}, {"Deep Work (2hr)", 45}, {"Meeting Prep", 20}}},
	{Name: "Health", Activities: []Activity{{"Healthy Meal", 15}, {"8hrs Sleep", 25}, {"Meditation", 20}}},
	{Name: "Skills", Activities: []Activity{{"Practice Skill", 30}, {"Online Course", 40}, {"Side Project", 55}}},
}

// FindCategory looks up a default category by case-insensitive name.
func FindCategory(name string) (Category, bool) {
	needle := strings.TrimSpace(name)
	for _, cat := range DefaultCategories {
		if strings.EqualFold(cat.Name, needle) {
			return cat, true
		}
	}
	return Category{}, false
}

// FindActivity looks up a preset activity inside a category.
func (c Category) FindActivity(name string) (Activity, bool) {
	needle := strings.TrimSpace(name)
	for _, act := range c.Activities {
		if strings.EqualFold(act.Name, needle) {
			return act, true
		}
	}
	return Activity{}, false
}
