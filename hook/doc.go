// Package hook manages function detours whose targets are found by
// signature scanning.
//
// A Hook moves between three states:
//
//	Uninstalled (address 0) --Install--> Installed+Enabled | Installed+Disabled
//	Installed --SetEnabled--> toggles engaged/disengaged
//	Installed --Uninstall--> Installed+Disabled (trampoline kept)
//	Installed --Remove--> Uninstalled
//
// The Manager owns every hook registered by the host or by plugins and
// retries pending installs once per tick. The Coordinator turns consumer
// requests into desired enabled states.
//
// Nothing here is safe for concurrent use. Hooks are driven from the host's
// main thread and the detour engine is not reentrant.
package hook
