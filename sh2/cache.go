package sh2

// CacheMode selects how the cache is emulated for a session.
type CacheMode uint8

const (
	// CacheFull keeps line data for every hit and write.
	CacheFull CacheMode = iota
	// CacheFast serves hits in directly mapped RAM from the backing store
	// and writes there without touching line data.
	CacheFast
)

func (m CacheMode) String() string {
	if m == CacheFast {
		return "fast"
	}
	return "full"
}

// CCR bits.
const (
	ccrCE = 0x01
	ccrID = 0x02
	ccrOD = 0x04
	ccrTW = 0x08
	ccrCP = 0x10
	ccrW  = 0xC0
)

const (
	cacheSets    = 64
	cacheWays    = 4
	cacheLine    = 16
	tagMask      = 0x1FFFFC00
	tagInvalid   = 1
	lineAddrMask = 0x1FFFFFF0
)

// LRU code update per accessed way: code = code&lruAnd[w] | lruOr[w].
var (
	lruAnd = [cacheWays]uint8{0x07, 0x39, 0x3E, 0x3F}
	lruOr  = [cacheWays]uint8{0x00, 0x20, 0x14, 0x0B}
)

// lruReplace maps an LRU code to the way to evict.
var lruReplace [64]uint8

func init() {
	for code := range lruReplace {
		switch {
		case code&0x38 == 0x38:
			lruReplace[code] = 0
		case code&0x26 == 0x06:
			lruReplace[code] = 1
		case code&0x15 == 0x01:
			lruReplace[code] = 2
		default:
			// code&0x0B == 0, and every unreachable code
			lruReplace[code] = 3
		}
	}
}

type cache struct {
	tags [cacheSets][cacheWays]uint32
	lru  [cacheSets]uint8
	data [cacheSets][cacheWays][cacheLine]byte
}

func cacheSet(addr uint32) int { return int(addr >> 4 & (cacheSets - 1)) }

func (ca *cache) purgeAll() {
	for s := range ca.tags {
		for w := range ca.tags[s] {
			ca.tags[s][w] |= tagInvalid
		}
		ca.lru[s] = 0
	}
}

// Lookup searches the set for addr. In two-way mode only ways 2 and 3
// take part.
func (ca *cache) Lookup(addr uint32, twoWay bool) (way int, hit bool) {
	s := cacheSet(addr)
	tag := addr & tagMask
	w := 0
	if twoWay {
		w = 2
	}
	for ; w < cacheWays; w++ {
		if ca.tags[s][w] == tag {
			return w, true
		}
	}
	return -1, false
}

// UpdateLRU marks way as the most recently used in set.
func (ca *cache) UpdateLRU(set, way int) {
	ca.lru[set] = ca.lru[set]&lruAnd[way] | lruOr[way]
}

// victim picks the way to replace in set. An invalid way always wins.
func (ca *cache) victim(set int, twoWay bool) int {
	t := &ca.tags[set]
	if twoWay {
		w := 3
		if ca.lru[set]&1 != 0 {
			w = 2
		}
		if t[w]&tagInvalid == 0 && t[5-w]&tagInvalid != 0 {
			w = 5 - w
		}
		return w
	}
	w := int(lruReplace[ca.lru[set]])
	if t[w]&tagInvalid != 0 {
		return w
	}
	for i := 0; i < cacheWays; i++ {
		if t[i]&tagInvalid != 0 {
			return i
		}
	}
	return w
}

// assocPurge invalidates every way in the set whose tag matches addr.
func (ca *cache) assocPurge(addr uint32, twoWay bool) {
	s := cacheSet(addr)
	tag := addr & tagMask
	w := 0
	if twoWay {
		w = 2
	}
	for ; w < cacheWays; w++ {
		if ca.tags[s][w] == tag {
			ca.tags[s][w] |= tagInvalid
		}
	}
}

// readAddrArray returns tag, LRU code and valid bit for the set selected by
// addr and the way selected by CCR.W.
func (ca *cache) readAddrArray(addr uint32, ccr uint8) uint32 {
	s := cacheSet(addr)
	w := int(ccr >> 6)
	t := ca.tags[s][w]
	v := t & tagMask
	v |= uint32(ca.lru[s]) << 4
	if t&tagInvalid == 0 {
		v |= 1 << 2
	}
	return v
}

// writeAddrArray takes the tag and valid bit from the address and the LRU
// code from the data.
func (ca *cache) writeAddrArray(addr uint32, val uint32, ccr uint8) {
	s := cacheSet(addr)
	w := int(ccr >> 6)
	t := addr & tagMask
	if addr&(1<<2) == 0 {
		t |= tagInvalid
	}
	ca.tags[s][w] = t
	ca.lru[s] = uint8(val >> 4 & 0x3F)
}

func (ca *cache) readDataArray(size Size, addr uint32) uint32 {
	line := &ca.data[cacheSet(addr)][addr>>10&3]
	return readBE(line[:], size, addr&15)
}

func (ca *cache) writeDataArray(size Size, addr uint32, val uint32) {
	line := &ca.data[cacheSet(addr)][addr>>10&3]
	writeBE(line[:], size, addr&15, val)
}

// memAccessor serves accesses to the cacheable area (addresses with bits
// 31..29 clear). One accessor is selected per CCR and cache mode.
type memAccessor interface {
	read(c *CPU, size Size, addr uint32, instr bool, start int64) (uint32, int64)
	write(c *CPU, size Size, addr uint32, val uint32, start int64) int64
}

type uncachedAccess struct{}

func (uncachedAccess) read(c *CPU, size Size, addr uint32, instr bool, start int64) (uint32, int64) {
	return c.extRead(size, addr, start)
}

func (uncachedAccess) write(c *CPU, size Size, addr uint32, val uint32, start int64) int64 {
	return c.extWrite(size, addr, val, start)
}

type cachedAccess struct {
	twoWay bool
	bypass bool
}

func (a *cachedAccess) read(c *CPU, size Size, addr uint32, instr bool, start int64) (uint32, int64) {
	ca := &c.cache
	s := cacheSet(addr)
	if w, hit := ca.Lookup(addr, a.twoWay); hit {
		ca.UpdateLRU(s, w)
		if a.bypass {
			if p := c.fastPage(addr); p != nil {
				return readBE(p, size, addr&uint32(len(p)-1)), start + 1
			}
		}
		return readBE(ca.data[s][w][:], size, addr&15), start + 1
	}

	disable := uint8(ccrOD)
	if instr {
		disable = ccrID
	}
	if c.ccr&disable != 0 {
		return c.extRead(size, addr, start)
	}

	w := ca.victim(s, a.twoWay)
	done := c.FillLine(addr, w, start)
	ca.UpdateLRU(s, w)
	return readBE(ca.data[s][w][:], size, addr&15), done
}

func (a *cachedAccess) write(c *CPU, size Size, addr uint32, val uint32, start int64) int64 {
	ca := &c.cache
	s := cacheSet(addr)
	w, hit := ca.Lookup(addr, a.twoWay)
	if hit {
		ca.UpdateLRU(s, w)
		// Fast mode never writes line data for directly mapped RAM.
		if !a.bypass || c.fastPage(addr) == nil {
			writeBE(ca.data[s][w][:], size, addr&15, val)
		}
	}
	return c.extWrite(size, addr, val, start)
}

var (
	accUncached memAccessor = uncachedAccess{}

	// indexed by [CacheMode][two-way]
	accCached = [2][2]memAccessor{
		{&cachedAccess{}, &cachedAccess{twoWay: true}},
		{&cachedAccess{bypass: true}, &cachedAccess{twoWay: true, bypass: true}},
	}
)

// selectAccessors picks the strategy for the current CCR and cache mode.
func (c *CPU) selectAccessors() {
	if c.ccr&ccrCE == 0 {
		c.instrAcc, c.dataAcc = accUncached, accUncached
		return
	}
	tw := 0
	if c.ccr&ccrTW != 0 {
		tw = 1
	}
	acc := accCached[c.cacheMode&1][tw]
	c.instrAcc, c.dataAcc = acc, acc
}

// FillLine loads the 16-byte line containing addr into way with four long
// bus reads and returns the time the fill completes.
func (c *CPU) FillLine(addr uint32, way int, start int64) int64 {
	ca := &c.cache
	s := cacheSet(addr)
	base := addr & lineAddrMask
	line := &ca.data[s][way]
	done := start
	for i := uint32(0); i < cacheLine; i += 4 {
		var v uint32
		v, done = c.extRead(Long, base+i, done)
		writeBE(line[:], Long, i, v)
	}
	ca.tags[s][way] = addr & tagMask
	return done
}

func (c *CPU) writeCCR(v uint8) {
	if v&ccrCP != 0 {
		c.cache.purgeAll()
	}
	c.ccr = v &^ ccrCP
	c.selectAccessors()
}

// CacheMode returns the session cache emulation mode.
func (c *CPU) CacheMode() CacheMode { return c.cacheMode }

// SetCacheMode switches cache emulation. Line data for directly mapped RAM
// is reloaded so that a switch from fast to full mode sees current memory.
func (c *CPU) SetCacheMode(mode CacheMode) {
	c.cacheMode = mode
	c.fixupCache()
	c.selectAccessors()
}

// fixupCache reloads every valid line that lies in directly mapped RAM.
// In fast mode those lines are never written, so their data may be stale.
// No time is charged.
func (c *CPU) fixupCache() {
	ca := &c.cache
	for s := 0; s < cacheSets; s++ {
		for w := 0; w < cacheWays; w++ {
			t := ca.tags[s][w]
			if t&tagInvalid != 0 {
				continue
			}
			base := t | uint32(s)<<4
			p := c.fastPage(base)
			if p == nil {
				continue
			}
			copy(ca.data[s][w][:], p[base&uint32(len(p)-1):][:cacheLine])
		}
	}
}
