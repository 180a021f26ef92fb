package game

var (
	FomoMessages = []string{
		"LAST CHANCE BEFORE THE PUMP",
		"HAVE FUN STAYING POOR",
		"ROCKET READY TO LAUNCH",
		"COILING UP",
		"ALTSEASON IS COMING",
		"ACCUMULATION ZONE",
	}

	NewsMessages = []string{
		"POWELL IS LATE AGAIN",
		"GARY GENSLER IS BACK",
		"SEC WOKE UP",
		"TRUMP PUMP",
		"BLACK SWAN",
		"FUNDS ARE SAFU",
	}

	InfluencerMessages = []string{
		"IMMA LONG IT",
		"NFA",
		"THE CYCLE IS DEAD",
		"BUCKLE UP",
		"WE ARE MOONING",
		"CHANCE TO DCA",
		"LAMBO SOON",
	}

	shortDeathMessages = []string{
		"Total rekt.",
		"Market > You.",
		"Paper hands.",
		"Master of buy high, sell low.",
	}

	timeDeathMessages = []string{
		"Didn't even warm up.",
		"NGMI",
		"Almost a trader.",
		"Better than nothing.",
	}

	leverageDeathMessages = []string{
		"100x leverage. 0x brain.",
		"100x leverage? Genius.",
		"Low leverage = long life. Not today.",
	}

	egoDeathMessages = []string{
		"Thought you'd make it?",
		"Thought you controlled the market?",
		"Another TA genius",
		"Enjoy your bags, holder",
		"Application to McDonald's submitted",
	}
)

func messagePool(t EventType) []string {
	switch t {
	case Fomo:
		return FomoMessages
	case News:
		return NewsMessages
	default:
		return InfluencerMessages
	}
}
