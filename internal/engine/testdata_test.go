package engine

import "strings"

const clientLog = `spdlog preamble that is ignored
[2024-01-01 00:00:00.000000000] [info] Received unique ID from server: 7
[2024-01-01 00:00:00.100000000] [info] physics tick with delta: 16
using input snapshot: Client Input History Insertion Time (epoch ms): 1000, physics world: poslen: 2
[2024-01-01 00:00:00.116000000] [info] physics tick with delta: 16
using input snapshot: Client Input History Insertion Time (epoch ms): 2000, physics world: poslen: 4
[2024-01-01 00:00:00.120000000] [info] render complete
[2024-01-01 00:00:00.150000000] [info] Just received a game update Client Input History Insertion Time (epoch ms): 1000
`

const serverLog = `[2024-01-01 01:00:00.050000000] [info] server has been initialized
[2024-01-01 01:00:00.105000000] [info] Just received input snapshot Client Input History Insertion Time (epoch ms): 1000
[] [info] truncated write
continuation of the truncated write
[2024-01-01 01:00:00.110000000] [info] updated player state Client Input History Insertion Time (epoch ms): 1000
[2024-01-01 01:00:00.140000000] [info] Sending game update Client Input History Insertion Time (epoch ms): 1000
`

func testReaders() (*strings.Reader, *strings.Reader) {
	return strings.NewReader(clientLog), strings.NewReader(serverLog)
}
