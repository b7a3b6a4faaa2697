package leveling

// LevelForXpScan exposes the reference linear search to the external tests.
var LevelForXpScan = levelForXpScan
