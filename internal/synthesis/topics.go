package synthesis

import "strings"

// Topic is a building-management category used for both queries and content.
type Topic string

const (
	TopicHVAC          Topic = "hvac"
	TopicLighting      Topic = "lighting"
	TopicEnergy        Topic = "energy"
	TopicSafety        Topic = "safety"
	TopicSecurity      Topic = "security"
	TopicAutomation    Topic = "automation"
	TopicRoom          Topic = "room"
	TopicEquipment     Topic = "equipment"
	TopicMaintenance   Topic = "maintenance"
	TopicEnvironmental Topic = "environmental"
	TopicCost          Topic = "cost"
	TopicGeneral       Topic = "general"
)

type topicKeywords struct {
	topic    Topic
	keywords []string
}

// queryTopics is checked in order; the first topic with a matching keyword wins.
var queryTopics = []topicKeywords{
	{TopicHVAC, []string{"hvac", "heating", "cooling", "temperature", "thermostat", "ac", "air conditioning", "climate", "ventilation"}},
	{TopicLighting, []string{"lighting", "lights", "illumination", "led", "bulb", "brightness", "lamp", "dimmer"}},
	{TopicEnergy, []string{"energy", "power", "efficiency", "consumption", "electricity", "kwh", "meter", "electrical"}},
	{TopicSafety, []string{"safety", "fire", "emergency", "smoke", "detector", "alarm", "co2", "carbon monoxide"}},
	{TopicSecurity, []string{"security", "camera", "lock", "access", "surveillance", "motion", "intrusion", "keycard"}},
	{TopicAutomation, []string{"automation", "smart", "control", "system", "iot", "integration", "automated"}},
	{TopicRoom, []string{"room", "floor", "classroom", "capacity", "space", "occupancy", "booking"}},
	{TopicEquipment, []string{"equipment", "device", "sensor", "monitor", "controller", "hardware"}},
	{TopicMaintenance, []string{"maintenance", "repair", "service", "technician", "install", "filter", "replace"}},
	{TopicEnvironmental, []string{"environmental", "air quality", "humidity", "moisture", "leak", "water", "indoor air"}},
	{TopicCost, []string{"cost", "budget", "money", "expense", "financial", "savings", "roi", "payback"}},
}

// contentTopics buckets retrieved chunks. Its order differs from queryTopics:
// automation is tested after maintenance.
var contentTopics = []topicKeywords{
	{TopicHVAC, []string{"hvac", "heating", "cooling", "ventilation", "temperature", "thermostat", "ac", "air conditioning", "climate"}},
	{TopicLighting, []string{"lighting", "led", "bulb", "illumination", "brightness", "light", "lamp"}},
	{TopicEnergy, []string{"energy", "power", "consumption", "efficiency", "kwh", "electricity", "electrical", "meter"}},
	{TopicSafety, []string{"safety", "fire", "emergency", "alarm", "smoke", "detector", "co2"}},
	{TopicSecurity, []string{"security", "camera", "lock", "access", "motion", "surveillance"}},
	{TopicRoom, []string{"room", "floor", "classroom", "capacity", "space"}},
	{TopicEquipment, []string{"equipment", "device", "sensor", "monitor", "controller"}},
	{TopicMaintenance, []string{"maintenance", "repair", "service", "technician", "install"}},
	{TopicAutomation, []string{"automation", "smart", "control", "system", "iot"}},
	{TopicEnvironmental, []string{"environmental", "air quality", "humidity", "moisture", "leak"}},
	{TopicCost, []string{"cost", "budget", "money", "expense", "financial", "savings"}},
}

// Keywords are matched as substrings, so "ac" also hits "access" and "each".
func firstMatch(text string, topics []topicKeywords) Topic {
	lower := strings.ToLower(text)
	for _, t := range topics {
		for _, kw := range t.keywords {
			if strings.Contains(lower, kw) {
				return t.topic
			}
		}
	}
	return TopicGeneral
}

// Classify returns the intent of a query.
func Classify(query string) Topic {
	return firstMatch(query, queryTopics)
}

// BucketContent returns the topic of a retrieved chunk.
func BucketContent(text string) Topic {
	return firstMatch(text, contentTopics)
}

type section struct {
	label    string
	advisory string
}

var sections = map[Topic]section{
	TopicHVAC: {
		label:    "**HVAC System Information:**",
		advisory: "**HVAC Best Practices:** Optimal temperature range is 68-72°F (20-22°C) for comfort and energy efficiency. Smart thermostats can reduce energy consumption by 15-25% through automated scheduling and weather-based adjustments.",
	},
	TopicLighting: {
		label:    "**Lighting System Information:**",
		advisory: "**Lighting Best Practices:** LED systems provide 80% energy savings compared to traditional lighting. Use daylight sensors and occupancy controls for optimal efficiency. Natural light integration can reduce artificial lighting needs by 50-80%.",
	},
	TopicEnergy: {
		label:    "**Energy System Information:**",
		advisory: "**Energy Efficiency Strategies:** Smart scheduling and automated controls can reduce building energy consumption by 20-30%. Monitor peak usage times and implement load balancing. Weather-responsive systems optimize energy use automatically.",
	},
	TopicSafety: {
		label:    "**Safety System Information:**",
		advisory: "**Safety Best Practices:** Fire safety systems require monthly testing. Smoke detectors should be inspected quarterly. Emergency exits must remain clearly marked and accessible. CO2 monitoring ensures air quality.",
	},
	TopicSecurity: {
		label:    "**Security System Information:**",
		advisory: "**Security Best Practices:** Access control systems should be integrated with occupancy tracking. Motion detectors and cameras require regular maintenance and firmware updates. Implement layered security with multiple detection methods.",
	},
	TopicAutomation: {
		label:    "**Automation System Information:**",
		advisory: "**Automation Best Practices:** Integrate all systems for centralized control. Use IoT sensors for real-time monitoring and automated responses to environmental changes. Implement smart scheduling for optimal efficiency.",
	},
	TopicRoom: {
		label:    "**Room Information:**",
		advisory: "**Space Management:** Optimize space utilization through occupancy sensors and booking systems. Standard classrooms accommodate 30-62 students with appropriate AV equipment. Track utilization rates for efficient space planning.",
	},
	TopicEquipment: {
		label:    "**Equipment Information:**",
		advisory: "**Equipment Management:** IoT devices require regular firmware updates and network connectivity checks. Implement predictive maintenance schedules for optimal performance. Monitor device status for proactive maintenance.",
	},
	TopicMaintenance: {
		label:    "**Maintenance Information:**",
		advisory: "**Maintenance Best Practices:** Establish preventive maintenance schedules. HVAC filters should be replaced every 3-6 months. Document all service activities. Use predictive maintenance to prevent equipment failures.",
	},
	TopicEnvironmental: {
		label:    "**Environmental Information:**",
		advisory: "**Environmental Monitoring:** Maintain humidity levels between 30-50% for comfort. Use air quality sensors to monitor CO2 levels and ensure proper ventilation. Implement leak detection systems for water damage prevention.",
	},
	TopicCost: {
		label:    "**Cost Information:**",
		advisory: "**Cost Management:** Energy-efficient systems can reduce operational costs by 25-40%. Implement smart scheduling to minimize peak demand charges. Weather-responsive controls optimize energy spending.",
	},
	TopicGeneral: {
		label:    "**Building Information:**",
		advisory: "**General Best Practices:** Implement comprehensive building automation systems with regular maintenance schedules, energy monitoring, and automated controls for optimal performance and efficiency.",
	},
}

// Advisory returns the fixed guidance paragraph for a topic.
func Advisory(t Topic) string {
	s, ok := sections[t]
	if !ok {
		s = sections[TopicGeneral]
	}
	return s.advisory
}
