package routegen

import "fmt"

// Every prompt requests twice the number of stops the client asked for so the
// optimizer has a real candidate set to narrow down, and demands STRICT JSON
// followed by a short TRIP NOTES section that the metric extractor mines.

func routePromptBody(angle, notesFormat, destination string, stops int, budget string) string {
	return fmt.Sprintf(`
            You are planning a multi-stop road trip to %s for a traveler with a %s budget.
            %s
            Propose exactly %d candidate cities to stop at along the way.
            Return the response STRICTLY as a JSON object with:
            {
            "origin": {"name": "Starting city", "latitude": <float>, "longitude": <float>},
            "destination": {"name": "%s", "latitude": <float>, "longitude": <float>},
            "waypoints": [
                {
                "name": "City name",
                "latitude": <float>,
                "longitude": <float>,
                "description": "A 2-3 sentence description of why this city fits the trip.",
                "activities": ["activity 1", "activity 2"],
                "duration": "Suggested time to spend, e.g. 'Half a day'",
                "current_events": "A notable current event or festival, or 'None'"
                }
            ]
            }
            After the JSON object, add a plain-text section titled TRIP NOTES with one line per item:
            %s`, destination, budget, angle, 2*stops, destination, notesFormat)
}

func adventurePrompt(destination string, stops int, budget string) string {
	return routePromptBody(
		"Focus on outdoor adventure: hiking, climbing, rafting, canyons and via ferrata.",
		`Difficulty: <easy|moderate|challenging|extreme>
            Outdoor rating: <1-10>
            Recommended gear: <comma-separated list>
            Hiking: <percent>% Water: <percent>% Climbing: <percent>%`,
		destination, stops, budget)
}

func culturePrompt(destination string, stops int, budget string) string {
	return routePromptBody(
		"Focus on culture: museums, historic centers, architecture and local traditions.",
		`Museum rating: <1-10>
            Best season: <spring|summer|autumn|winter>
            Art: <percent>% History: <percent>% Architecture: <percent>%`,
		destination, stops, budget)
}

func foodPrompt(destination string, stops int, budget string) string {
	return routePromptBody(
		"Focus on food and wine: markets, regional dishes, vineyards and memorable restaurants.",
		`Average meal: <price range, e.g. €20-€40>
            Regional specialties: <comma-separated list>
            Street food: <percent>% Casual dining: <percent>% Fine dining: <percent>%`,
		destination, stops, budget)
}

func hiddenGemsPrompt(destination string, stops int, budget string) string {
	return routePromptBody(
		"Focus on hidden gems: small towns and places most tourists skip, favoring authenticity over fame.",
		`Crowd level: <empty|quiet|busy|packed>
            Authenticity: <1-10>
            Local tips: <comma-separated list>`,
		destination, stops, budget)
}

func naturePrompt(destination string, stops int, budget string) string {
	return routePromptBody(
		"Focus on nature: national parks, lakes, scenic drives and wildlife.",
		`Scenery rating: <1-10>
            Trail level: <easy|moderate|hard>
            Notable parks: <comma-separated list>`,
		destination, stops, budget)
}
