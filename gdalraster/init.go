package gdalraster

// #include "gdal.h"
// #include "gdal_frmts.h"
// #cgo pkg-config: gdal
import "C"

import (
	"os"
	"sync"
)

var initOnce sync.Once

// Init sets GDAL environment defaults and registers drivers. It runs once
// per process; Open calls it.
func Init() {
	initOnce.Do(func() {
		setDefaultEnv("GDAL_PAM_ENABLED", "NO")
		setDefaultEnv("GDAL_DISABLE_READDIR_ON_OPEN", "EMPTY_DIR")
		// every image of a stack stays open for the reader's lifetime
		setDefaultEnv("GDAL_MAX_DATASET_POOL_SIZE", "1000")
		registerDrivers()
	})
}

func setDefaultEnv(envVar string, defaultVal string) {
	if _, ok := os.LookupEnv(envVar); !ok {
		os.Setenv(envVar, defaultVal)
	}
}

// registerDrivers puts the stack formats at the front of the driver list.
// GDAL tries drivers in a linear scan on open.
func registerDrivers() {
	var haveGTiff, haveENVI bool

	C.GDALAllRegister()
	for i := 0; i < int(C.GDALGetDriverCount()); i++ {
		driver := C.GDALGetDriver(C.int(i))
		switch C.GoString(C.GDALGetDriverShortName(driver)) {
		case "GTiff":
			haveGTiff = true
		case "ENVI":
			haveENVI = true
		}
	}

	if !haveGTiff && !haveENVI {
		return
	}

	for C.GDALGetDriverCount() > 0 {
		C.GDALDeregisterDriver(C.GDALGetDriver(C.int(0)))
	}

	if haveENVI {
		C.GDALRegister_ENVI()
	}
	if haveGTiff {
		C.GDALRegister_GTiff()
	}
	C.GDALAllRegister()
}
