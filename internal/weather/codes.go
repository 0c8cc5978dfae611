package weather

// WMO weather interpretation codes as used by Open-Meteo.
var conditions = map[int]string{
	0:  "clear sky",
	1:  "mainly clear",
	2:  "partly cloudy",
	3:  "overcast",
	45: "fog",
	48: "depositing rime fog",
	51: "light drizzle",
	53: "moderate drizzle",
	55: "dense drizzle",
	61: "slight rain",
	63: "moderate rain",
	65: "heavy rain",
	71: "slight snow",
	73: "moderate snow",
	75: "heavy snow",
	80: "slight rain showers",
	81: "moderate rain showers",
	82: "violent rain showers",
	85: "slight snow showers",
	86: "heavy snow showers",
	95: "thunderstorm",
	96: "thunderstorm with slight hail",
	99: "thunderstorm with heavy hail",
}

// Describe turns a weather code into a short description.
func Describe(code int) string {
	if s, ok := conditions[code]; ok {
		return s
	}
	return "unknown"
}
